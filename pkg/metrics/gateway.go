// Package metrics implements the resource manager's metrics gateway:
// a single Prometheus query surface that resolves CPU and memory
// usage and limits for a named service, falling back to a direct
// Docker stats read when Prometheus has no data.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/acme/resourcemgr/pkg/clock"
	"github.com/acme/resourcemgr/pkg/docker"
	"github.com/acme/resourcemgr/pkg/logger"
)

// ResourceMetrics is a single observation of a service's CPU and
// memory usage and limits.
type ResourceMetrics struct {
	CPUUsage      float64
	MemoryUsage   int64
	CPULimit      float64
	MemoryLimit   int64
	CPUPercent    float64
	MemoryPercent float64
	Timestamp     time.Time
}

// Gateway resolves ResourceMetrics for a named service.
type Gateway interface {
	GetMetrics(ctx context.Context, serviceName string) (ResourceMetrics, error)
}

// DockerFallback reads a single service's usage directly from the
// Docker daemon when Prometheus has no series for it yet.
type DockerFallback interface {
	FindContainerByService(ctx context.Context, name string) (string, error)
	GetContainerStats(ctx context.Context, containerID string) (*docker.ContainerStats, error)
}

// PrometheusGateway queries a Prometheus-compatible HTTP API for the
// four scalars the decision engine needs, per spec: cpu_usage (rate
// over the analysis window), memory_usage (instantaneous bytes),
// cpu_limit (quota in cores), memory_limit (bytes).
type PrometheusGateway struct {
	baseURL        string
	analysisWindow string
	httpClient     *http.Client
	fallback       DockerFallback
	clock          clock.Clock
	log            *logger.Logger
}

// NewPrometheusGateway builds a gateway against baseURL (e.g.
// http://localhost:9090), evaluating rate queries over
// analysisWindow (a Prometheus duration literal such as "5m").
// fallback may be nil to disable the Docker-stats fallback path.
func NewPrometheusGateway(baseURL, analysisWindow string, fallback DockerFallback, clk clock.Clock) *PrometheusGateway {
	if clk == nil {
		clk = clock.New()
	}
	return &PrometheusGateway{
		baseURL:        baseURL,
		analysisWindow: analysisWindow,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		fallback:       fallback,
		clock:          clk,
		log:            logger.Global().WithComponent("metrics"),
	}
}

// GetMetrics issues the four underlying queries for serviceName.
// Any sub-query failure yields 0 for that field; failures are logged,
// never surfaced, so the decision engine can treat limit=0 as "no
// data, do not act on this resource."
func (g *PrometheusGateway) GetMetrics(ctx context.Context, serviceName string) (ResourceMetrics, error) {
	now := g.clock.Now()
	m := ResourceMetrics{Timestamp: now}

	m.CPUUsage = g.scalarQuery(ctx, serviceName, g.cpuUsageQuery(serviceName))
	m.MemoryUsage = int64(g.scalarQuery(ctx, serviceName, g.memoryUsageQuery(serviceName)))
	m.CPULimit = g.scalarQuery(ctx, serviceName, g.cpuLimitQuery(serviceName)) / 100000
	m.MemoryLimit = int64(g.scalarQuery(ctx, serviceName, g.memoryLimitQuery(serviceName)))

	if m.CPULimit == 0 && m.MemoryLimit == 0 && g.fallback != nil {
		g.applyDockerFallback(ctx, serviceName, &m)
	}

	if m.CPULimit > 0 {
		m.CPUPercent = m.CPUUsage / m.CPULimit
	}
	if m.MemoryLimit > 0 {
		m.MemoryPercent = float64(m.MemoryUsage) / float64(m.MemoryLimit)
	}

	return m, nil
}

func (g *PrometheusGateway) cpuUsageQuery(service string) string {
	return fmt.Sprintf(`sum(rate(container_cpu_usage_seconds_total{name=~".*%s.*"}[%s]))`, service, g.analysisWindow)
}

func (g *PrometheusGateway) memoryUsageQuery(service string) string {
	return fmt.Sprintf(`sum(container_memory_usage_bytes{name=~".*%s.*"})`, service)
}

func (g *PrometheusGateway) cpuLimitQuery(service string) string {
	return fmt.Sprintf(`sum(container_spec_cpu_quota{name=~".*%s.*"})`, service)
}

func (g *PrometheusGateway) memoryLimitQuery(service string) string {
	return fmt.Sprintf(`sum(container_spec_memory_limit_bytes{name=~".*%s.*"})`, service)
}

// promResponse is the subset of the Prometheus HTTP API's instant
// query response this gateway decodes.
type promResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Value []interface{} `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

func (g *PrometheusGateway) scalarQuery(ctx context.Context, service, query string) float64 {
	endpoint := g.baseURL + "/api/v1/query"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		g.log.Warn("failed to build prometheus query request", "service", service, "error", err)
		return 0
	}
	q := url.Values{}
	q.Set("query", query)
	req.URL.RawQuery = q.Encode()

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.log.Warn("prometheus query failed", "service", service, "error", err)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.log.Warn("prometheus query returned non-200", "service", service, "status", resp.StatusCode)
		return 0
	}

	var parsed promResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		g.log.Warn("failed to decode prometheus response", "service", service, "error", err)
		return 0
	}

	if parsed.Status != "success" || len(parsed.Data.Result) == 0 || len(parsed.Data.Result[0].Value) != 2 {
		return 0
	}

	str, ok := parsed.Data.Result[0].Value[1].(string)
	if !ok {
		return 0
	}
	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0
	}
	return value
}

func (g *PrometheusGateway) applyDockerFallback(ctx context.Context, service string, m *ResourceMetrics) {
	containerID, err := g.fallback.FindContainerByService(ctx, service)
	if err != nil {
		g.log.Warn("docker fallback: container lookup failed", "service", service, "error", err)
		return
	}

	stats, err := g.fallback.GetContainerStats(ctx, containerID)
	if err != nil {
		g.log.Warn("docker fallback: stats read failed", "service", service, "error", err)
		return
	}

	m.CPUUsage = stats.CPUCores
	m.MemoryUsage = stats.MemoryUsage
	m.MemoryLimit = stats.MemoryLimit
}
