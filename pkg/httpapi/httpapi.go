// Package httpapi serves the resource manager's small HTTP surface:
// a health check, a legacy /metrics placeholder, and a separate
// /debug/metrics exposition of real internal counters.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acme/resourcemgr/pkg/clock"
)

// NewServer builds the resource manager's HTTP server bound to addr.
// registry may be nil to omit the /debug/metrics exposition.
func NewServer(addr string, registry prometheus.Gatherer, clk clock.Clock) *http.Server {
	if clk == nil {
		clk = clock.New()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(clk))
	mux.HandleFunc("/metrics", metricsPlaceholderHandler)
	if registry != nil {
		mux.Handle("/debug/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": clk.Now().UTC().Format(time.RFC3339),
		})
	}
}

func metricsPlaceholderHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("# resource manager metrics placeholder\n"))
}
