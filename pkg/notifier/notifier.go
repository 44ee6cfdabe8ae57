// Package notifier implements the resource manager's event sink: a
// master-enable plus per-event-type allow-list gating two independent
// channels, a structured log and an external Alertmanager-shaped
// webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/acme/resourcemgr/pkg/clock"
	"github.com/acme/resourcemgr/pkg/config"
	"github.com/acme/resourcemgr/pkg/logger"
)

// Event is one notification record. Timestamp is rendered as
// ISO-8601 when serialized to either sink.
type Event struct {
	Event        string    `json:"event"`
	Service      string    `json:"service"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	Reason       string    `json:"reason"`
	Timestamp    time.Time `json:"timestamp"`
}

const (
	EventResourceAdjustment  = "resource_adjustment"
	EventBlueGreenDeployment = "blue_green_deployment"
	EventDeploymentFailure   = "deployment_failure"
)

// Notifier emits events to whichever sinks are enabled, subject to a
// master enable switch and a per-event-type allow-list.
type Notifier struct {
	cfg        config.NotificationsConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      clock.Clock
	log        *logger.Logger
}

// New builds a Notifier from the resolved notifications configuration.
// The external alert sink is rate-limited to avoid hammering
// Alertmanager if many services flap at once.
func New(cfg config.NotificationsConfig, clk clock.Clock) *Notifier {
	if clk == nil {
		clk = clock.New()
	}
	return &Notifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		clock:      clk,
		log:        logger.Global().WithComponent("notifier"),
	}
}

// Emit dispatches event to every enabled, allow-listed sink. Sink
// failures are logged and swallowed; a notification never fails the
// actuation that triggered it.
func (n *Notifier) Emit(ctx context.Context, event Event) {
	if !n.cfg.Enabled {
		return
	}
	if !n.allowed(event.Event) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = n.clock.Now()
	}

	// One correlation ID identifies this notification attempt across
	// both sinks, so the log entry and the alert POST can be joined.
	correlationID := uuid.NewString()

	if n.cfg.Channels.Logfile.Enabled {
		n.emitLog(ctx, event, correlationID)
	}
	if n.cfg.Channels.Alertmanager.Enabled {
		n.emitAlertmanager(ctx, event, correlationID)
	}
}

func (n *Notifier) allowed(eventType string) bool {
	for _, e := range n.cfg.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// emitLog writes event to the structured-log sink as an audit record:
// an actuation (or actuation failure) is exactly the kind of durable,
// compliance-relevant trail AuditEvent exists for.
func (n *Notifier) emitLog(ctx context.Context, event Event, correlationID string) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.log.Warn("failed to marshal notification event", "error", err)
		return
	}
	n.log.WithRequestID(correlationID).AuditEvent(ctx, event.Event,
		slog.String("service", event.Service),
		slog.String("payload", string(payload)),
	)
}

// alertmanagerAlert is a single element of the array Alertmanager's
// webhook receiver expects.
type alertmanagerAlert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

func (n *Notifier) emitAlertmanager(ctx context.Context, event Event, correlationID string) {
	if err := n.limiter.Wait(ctx); err != nil {
		return
	}

	alert := alertmanagerAlert{
		Labels: map[string]string{
			"alertname": "ResourceAdjustment",
			"service":   event.Service,
			"severity":  "info",
		},
		Annotations: map[string]string{
			"summary":     fmt.Sprintf("%s %s on %s", event.Action, event.ResourceType, event.Service),
			"description": event.Reason,
		},
	}

	body, err := json.Marshal([]alertmanagerAlert{alert})
	if err != nil {
		n.log.Warn("failed to marshal alertmanager payload", "error", err)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, n.cfg.Channels.Alertmanager.URL, bytes.NewReader(body))
	if err != nil {
		n.log.Warn("failed to build alertmanager request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", correlationID)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.Warn("alertmanager post failed", "service", event.Service, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Warn("alertmanager post returned non-2xx", "service", event.Service, "status", resp.StatusCode)
	}
}
