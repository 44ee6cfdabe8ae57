package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/resourcemgr/pkg/actuator"
	"github.com/acme/resourcemgr/pkg/clock"
	"github.com/acme/resourcemgr/pkg/config"
	"github.com/acme/resourcemgr/pkg/decision"
	"github.com/acme/resourcemgr/pkg/metrics"
	"github.com/acme/resourcemgr/pkg/notifier"
)

type fakeGateway struct {
	metrics map[string]metrics.ResourceMetrics
}

func (f *fakeGateway) GetMetrics(ctx context.Context, service string) (metrics.ResourceMetrics, error) {
	return f.metrics[service], nil
}

type fakeActuator struct {
	applied []decision.AdjustmentDecision
	success bool
}

func (f *fakeActuator) Apply(ctx context.Context, d decision.AdjustmentDecision) actuator.Result {
	f.applied = append(f.applied, d)
	return actuator.Result{Success: f.success}
}

func TestEvaluateServiceRecordsStateOnSuccessfulActuation(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := config.DefaultConfig()
	cfg.Services.Monitored = []string{"web"}
	cfg.Thresholds.ConsecutiveChecks = 1

	gw := &fakeGateway{metrics: map[string]metrics.ResourceMetrics{
		"web": {CPULimit: 1.0, CPUPercent: 0.95},
	}}
	act := &fakeActuator{success: true}
	n := notifier.New(config.NotificationsConfig{Enabled: false}, clk)

	c := New(cfg, gw, act, act, n, clk)
	c.evaluateService(context.Background(), "web")

	require.Len(t, act.applied, 1)
	assert.Equal(t, decision.ActionIncrease, act.applied[0].Action)

	st := c.store.Get("web")
	assert.Equal(t, 1, st.AdjustmentsToday)
	assert.NotNil(t, st.LastAdjustment)
}

func TestEvaluateServiceSkipsActuationWhenGateDenies(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := config.DefaultConfig()
	cfg.Services.Monitored = []string{"web"}
	cfg.Automation.DryRun = true
	cfg.Thresholds.ConsecutiveChecks = 1

	gw := &fakeGateway{metrics: map[string]metrics.ResourceMetrics{
		"web": {CPULimit: 1.0, CPUPercent: 0.95},
	}}
	act := &fakeActuator{success: true}
	n := notifier.New(config.NotificationsConfig{Enabled: false}, clk)

	c := New(cfg, gw, act, act, n, clk)
	c.evaluateService(context.Background(), "web")

	assert.Len(t, act.applied, 0)
}
