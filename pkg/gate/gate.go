// Package gate implements the resource manager's actuation gate: the
// ordered checks that decide whether a non-none AdjustmentDecision is
// actually allowed to fire this tick.
package gate

import (
	"fmt"
	"time"

	"github.com/acme/resourcemgr/pkg/clock"
	"github.com/acme/resourcemgr/pkg/config"
	"github.com/acme/resourcemgr/pkg/decision"
	"github.com/acme/resourcemgr/pkg/logger"
	"github.com/acme/resourcemgr/pkg/state"
)

// Gate evaluates whether a decision should be actuated now.
type Gate struct {
	adj   config.AdjustmentConfig
	auto  config.AutomationConfig
	clock clock.Clock
	log   *logger.Logger
}

// New builds a Gate from the adjustment and automation configuration.
func New(adj config.AdjustmentConfig, auto config.AutomationConfig, clk clock.Clock) *Gate {
	if clk == nil {
		clk = clock.New()
	}
	return &Gate{adj: adj, auto: auto, clock: clk, log: logger.Global().WithComponent("gate")}
}

// ShouldAdjust runs the ordered actuation checks: no-op actions never
// fire, the daily counter rolls over before cooldown/cap are checked,
// cooldown and the daily cap each independently block actuation, and
// dry-run logs the would-be action without touching counters.
func (g *Gate) ShouldAdjust(service string, d decision.AdjustmentDecision, st *state.ServiceState) bool {
	if d.Action == decision.ActionNone {
		return false
	}

	now := g.clock.Now()
	st.ResetDailyIfNewDay(now)

	if st.LastAdjustment != nil {
		elapsed := now.Sub(*st.LastAdjustment)
		cooldown := time.Duration(g.adj.CooldownPeriodS) * time.Second
		if elapsed < cooldown {
			remaining := cooldown - elapsed
			g.log.Info("gate: cooldown active", "service", service, "remaining_seconds", int(remaining.Seconds()))
			return false
		}
	}

	if st.AdjustmentsToday >= g.adj.MaxAdjustmentsPerDay {
		g.log.Info("gate: daily adjustment cap reached", "service", service, "adjustments_today", st.AdjustmentsToday)
		return false
	}

	if g.auto.DryRun {
		g.log.Info(fmt.Sprintf("[DRY RUN] would %s %s for %s: %s", d.Action, d.ResourceType, service, d.Reason),
			"service", service, "action", d.Action, "resource_type", d.ResourceType)
		return false
	}

	return true
}
