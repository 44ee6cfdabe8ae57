// Package controller drives the resource manager's periodic tick:
// for every monitored service, fetch metrics, produce a decision,
// gate it, actuate, and update state on success. Scheduling is
// cron-driven rather than a hand-rolled ticker; see Run for details.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/acme/resourcemgr/pkg/actuator"
	"github.com/acme/resourcemgr/pkg/clock"
	"github.com/acme/resourcemgr/pkg/config"
	"github.com/acme/resourcemgr/pkg/decision"
	"github.com/acme/resourcemgr/pkg/gate"
	"github.com/acme/resourcemgr/pkg/logger"
	"github.com/acme/resourcemgr/pkg/metrics"
	"github.com/acme/resourcemgr/pkg/notifier"
	"github.com/acme/resourcemgr/pkg/state"
)

// Controller owns the service state store and wires together the
// gateway, gate, actuator, and notifier for one tick.
type Controller struct {
	cfg      *config.Config
	gateway  metrics.Gateway
	gate     *gate.Gate
	direct   actuator.Actuator
	blueGrn  actuator.Actuator
	notifier *notifier.Notifier
	store    *state.Store
	clock    clock.Clock
	log      *logger.Logger

	cron *cron.Cron
}

// New builds a Controller. direct and blueGreen may be the same value
// when only one actuator variant is configured; the tick handler
// chooses between them based on cfg.BlueGreen.Enabled.
func New(cfg *config.Config, gateway metrics.Gateway, direct, blueGreen actuator.Actuator, n *notifier.Notifier, clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{
		cfg:      cfg,
		gateway:  gateway,
		gate:     gate.New(cfg.Adjustment, cfg.Automation, clk),
		direct:   direct,
		blueGrn:  blueGreen,
		notifier: n,
		store:    state.NewStore(clk),
		clock:    clk,
		log:      logger.Global().WithComponent("controller"),
	}
}

// Run starts the cron-scheduled tick and blocks until ctx is
// cancelled. A tick that panics is recovered and logged by cron's
// Recover wrapper; the handler itself sleeps 60s before returning so
// a slow or failing tick backs off rather than retrying immediately,
// and SkipIfStillRunning prevents an overlapping tick in the
// meantime.
func (c *Controller) Run(ctx context.Context) error {
	logAdapter := cronLogger{log: c.log}

	c.cron = cron.New(cron.WithChain(
		cron.Recover(logAdapter),
		cron.SkipIfStillRunning(logAdapter),
	))

	spec := fmt.Sprintf("@every %ds", c.cfg.Monitoring.CheckIntervalS)
	if _, err := c.cron.AddFunc(spec, func() { c.tick(ctx) }); err != nil {
		return err
	}

	c.cron.Start()
	defer c.cron.Stop()

	<-ctx.Done()
	c.log.Info("controller: shutdown signal received")
	return nil
}

// tick evaluates every monitored service, in configured order. A
// panic here is caught by cron.Recover; see Run's doc comment for the
// resulting back-off behavior.
func (c *Controller) tick(ctx context.Context) {
	start := c.clock.Now()
	defer func() {
		tickDuration.Observe(c.clock.Now().Sub(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			c.backoff()
			panic(r)
		}
	}()

	if err := config.ApplyEnvOverrides(c.cfg); err != nil {
		c.log.Error("controller: failed to re-resolve environment overrides", "error", err)
		c.backoff()
		return
	}

	for _, service := range c.cfg.Services.Monitored {
		c.evaluateService(ctx, service)
	}
}

func (c *Controller) evaluateService(ctx context.Context, service string) {
	m, err := c.gateway.GetMetrics(ctx, service)
	if err != nil {
		c.log.Warn("controller: metrics fetch failed", "service", service, "error", err)
		return
	}

	st := c.store.Get(service)
	th := decision.ThresholdsFromConfig(c.cfg)
	d := decision.Evaluate(service, m, st, th, c.cfg.Adjustment, c.cfg.Services)
	decisionsTotal.WithLabelValues(service, string(d.Action)).Inc()

	if !c.gate.ShouldAdjust(service, d, st) {
		if d.Action != decision.ActionNone {
			gateDenialsTotal.WithLabelValues(service, "denied").Inc()
		}
		return
	}

	act := c.direct
	if c.cfg.BlueGreen.Enabled {
		act = c.blueGrn
	}

	result := act.Apply(ctx, d)
	if result.Success {
		actuationsTotal.WithLabelValues(service, "success").Inc()
		st.RecordSuccess(c.clock.Now())

		eventType := notifier.EventResourceAdjustment
		if c.cfg.BlueGreen.Enabled {
			eventType = notifier.EventBlueGreenDeployment
		}
		c.notifier.Emit(ctx, notifier.Event{
			Event:        eventType,
			Service:      service,
			Action:       string(d.Action),
			ResourceType: string(d.ResourceType),
			Reason:       d.Reason,
			Timestamp:    c.clock.Now(),
		})
		return
	}

	actuationsTotal.WithLabelValues(service, "failure").Inc()
	failureMsg := "controller: actuation failed"
	if result.TimedOut {
		failureMsg = "controller: actuator timeout"
	}
	c.log.ErrorEvent(ctx, failureMsg, result.Err,
		slog.String("service", service),
		slog.String("stderr", result.Stderr),
		slog.Bool("timed_out", result.TimedOut),
	)
	c.notifier.Emit(ctx, notifier.Event{
		Event:        notifier.EventDeploymentFailure,
		Service:      service,
		Action:       string(d.Action),
		ResourceType: string(d.ResourceType),
		Reason:       result.Err.Error(),
		Timestamp:    c.clock.Now(),
	})
}

// backoff pauses for 60s after a loop-level failure (a failed
// environment re-resolution, or a panic in tick before cron.Recover
// logs it), so a failing tick backs off instead of retrying
// immediately. The caller does any logging.
func (c *Controller) backoff() {
	c.clock.Sleep(60 * time.Second)
}

// cronLogger adapts the resource manager's structured logger to
// cron.Logger's two-method interface.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	l.log.Error(msg, args...)
}
