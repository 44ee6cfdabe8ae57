// Package decision implements the resource manager's Decision Engine:
// a function from fresh metrics and current per-service state to a
// single AdjustmentDecision, using hysteresis counters (advanced in
// place on the state) to avoid reacting to transient spikes.
package decision

import (
	"fmt"
	"math"

	"github.com/acme/resourcemgr/pkg/config"
	"github.com/acme/resourcemgr/pkg/metrics"
	"github.com/acme/resourcemgr/pkg/state"
)

// Action is the verb of an AdjustmentDecision.
type Action string

const (
	ActionNone     Action = "none"
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
)

// ResourceType names which resource(s) an AdjustmentDecision touches.
type ResourceType string

const (
	ResourceNone   ResourceType = "none"
	ResourceCPU    ResourceType = "cpu"
	ResourceMemory ResourceType = "memory"
	ResourceBoth   ResourceType = "both"
)

// AdjustmentDecision is the output of one evaluation for one service.
type AdjustmentDecision struct {
	ServiceName   string
	Action        Action
	ResourceType  ResourceType
	CurrentCPU    float64
	CurrentMemory string
	NewCPU        float64
	NewMemory     string
	Reason        string
}

// Thresholds holds the resolved (environment-override-applied)
// threshold values used for one evaluation.
type Thresholds struct {
	CPUHigh           float64
	CPULow            float64
	MemoryHigh        float64
	MemoryLow         float64
	ConsecutiveChecks int
}

// ThresholdsFromConfig resolves the thresholds to use for one tick.
// Per-tick re-resolution (rather than freezing at startup) lets
// CPU_HIGH_THRESHOLD-style environment overrides take effect live.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		CPUHigh:           cfg.Thresholds.CPUHigh,
		CPULow:            cfg.Thresholds.CPULow,
		MemoryHigh:        cfg.Thresholds.MemoryHigh,
		MemoryLow:         cfg.Thresholds.MemoryLow,
		ConsecutiveChecks: cfg.Thresholds.ConsecutiveChecks,
	}
}

// Evaluate runs the threshold evaluation and decision assembly for
// one service. st is mutated in place: the four consecutive counters
// are always updated, regardless of what decision results.
func Evaluate(serviceName string, m metrics.ResourceMetrics, st *state.ServiceState, th Thresholds, adj config.AdjustmentConfig, services config.ServicesConfig) AdjustmentDecision {
	evaluateResource(m.CPULimit, m.CPUPercent, th.CPUHigh, th.CPULow, &st.ConsecutiveHighCPU, &st.ConsecutiveLowCPU)
	evaluateResource(float64(m.MemoryLimit), m.MemoryPercent, th.MemoryHigh, th.MemoryLow, &st.ConsecutiveHighMemory, &st.ConsecutiveLowMemory)

	d := AdjustmentDecision{
		ServiceName:   serviceName,
		Action:        ActionNone,
		ResourceType:  ResourceNone,
		CurrentCPU:    m.CPULimit,
		CurrentMemory: config.FormatMemoryMB(m.MemoryLimit),
	}

	critical := isCritical(serviceName, services.Critical)
	k := th.ConsecutiveChecks

	if st.ConsecutiveHighCPU >= k {
		d.Action = ActionIncrease
		d.ResourceType = ResourceCPU
		d.Reason = fmt.Sprintf("cpu usage exceeded %.0f%% for %d consecutive checks", th.CPUHigh*100, st.ConsecutiveHighCPU)
	}
	if st.ConsecutiveHighMemory >= k {
		if d.Action == ActionIncrease {
			d.ResourceType = ResourceBoth
			d.Reason = fmt.Sprintf("%s; memory usage exceeded %.0f%% for %d consecutive checks", d.Reason, th.MemoryHigh*100, st.ConsecutiveHighMemory)
		} else {
			d.Action = ActionIncrease
			d.ResourceType = ResourceMemory
			d.Reason = fmt.Sprintf("memory usage exceeded %.0f%% for %d consecutive checks", th.MemoryHigh*100, st.ConsecutiveHighMemory)
		}
	}

	// Decreases are considered only when no increase fired, so the
	// "both" upgrade is asymmetric: high CPU plus low memory on the
	// same tick yields increase/cpu and the low memory is ignored.
	if d.Action == ActionNone {
		if st.ConsecutiveLowCPU >= k && !critical {
			d.Action = ActionDecrease
			d.ResourceType = ResourceCPU
			d.Reason = fmt.Sprintf("cpu usage below %.0f%% for %d consecutive checks", th.CPULow*100, st.ConsecutiveLowCPU)
		}
		if st.ConsecutiveLowMemory >= k && !critical {
			if d.Action == ActionDecrease {
				d.ResourceType = ResourceBoth
				d.Reason = fmt.Sprintf("%s; memory usage below %.0f%% for %d consecutive checks", d.Reason, th.MemoryLow*100, st.ConsecutiveLowMemory)
			} else {
				d.Action = ActionDecrease
				d.ResourceType = ResourceMemory
				d.Reason = fmt.Sprintf("memory usage below %.0f%% for %d consecutive checks", th.MemoryLow*100, st.ConsecutiveLowMemory)
			}
		}
	}

	if d.Action == ActionNone {
		return d
	}

	baselineCPU, baselineMemory := baseline(serviceName, services)
	applyArithmetic(&d, m, adj, baselineCPU, baselineMemory)

	return d
}

// evaluateResource advances the high/low hysteresis counters for one
// resource. A zero limit means "no data": it falls through to the
// reset branch without incrementing either counter, per spec — a
// no-data tick must never look like a sustained-low reading.
func evaluateResource(limit, percent, high, low float64, consecutiveHigh, consecutiveLow *int) {
	switch {
	case limit == 0:
		*consecutiveHigh = 0
		*consecutiveLow = 0
	case percent > high:
		*consecutiveHigh++
		*consecutiveLow = 0
	case percent < low:
		*consecutiveLow++
		*consecutiveHigh = 0
	default:
		*consecutiveHigh = 0
		*consecutiveLow = 0
	}
}

func isCritical(service string, critical []string) bool {
	for _, c := range critical {
		if c == service {
			return true
		}
	}
	return false
}

func baseline(service string, services config.ServicesConfig) (float64, int64) {
	if b, ok := services.Baseline[service]; ok {
		memBytes, err := config.ParseMemory(b.Memory)
		if err == nil {
			return b.CPU, memBytes
		}
	}
	return 0, 64 * 1024 * 1024
}

func applyArithmetic(d *AdjustmentDecision, m metrics.ResourceMetrics, adj config.AdjustmentConfig, baselineCPU float64, baselineMemory int64) {
	minMemory, _ := config.ParseMemory(adj.MinMemory)
	maxMemory, _ := config.ParseMemory(adj.MaxMemory)

	touchesCPU := d.ResourceType == ResourceCPU || d.ResourceType == ResourceBoth
	touchesMemory := d.ResourceType == ResourceMemory || d.ResourceType == ResourceBoth

	newCPU := m.CPULimit
	newMemory := m.MemoryLimit

	if touchesCPU {
		switch d.Action {
		case ActionIncrease:
			newCPU = math.Min(m.CPULimit*adj.IncreaseFactor, adj.MaxCPU)
		case ActionDecrease:
			newCPU = math.Max(m.CPULimit*adj.DecreaseFactor, math.Max(adj.MinCPU, baselineCPU))
		}
		newCPU = math.Round(newCPU*100) / 100
	}

	if touchesMemory {
		switch d.Action {
		case ActionIncrease:
			newMemory = int64(math.Min(float64(m.MemoryLimit)*adj.IncreaseFactor, float64(maxMemory)))
		case ActionDecrease:
			floor := minMemory
			if baselineMemory > floor {
				floor = baselineMemory
			}
			newMemory = int64(math.Max(float64(m.MemoryLimit)*adj.DecreaseFactor, float64(floor)))
		}
	}

	d.NewCPU = newCPU
	d.NewMemory = config.FormatMemoryMB(newMemory)
	if !touchesCPU {
		d.NewCPU = m.CPULimit
	}
}
