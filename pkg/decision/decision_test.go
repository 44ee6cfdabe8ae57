package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/acme/resourcemgr/pkg/config"
	"github.com/acme/resourcemgr/pkg/metrics"
	"github.com/acme/resourcemgr/pkg/state"
)

func thresholds() Thresholds {
	return Thresholds{CPUHigh: 0.8, CPULow: 0.2, MemoryHigh: 0.8, MemoryLow: 0.2, ConsecutiveChecks: 3}
}

func adjustment() config.AdjustmentConfig {
	return config.AdjustmentConfig{
		IncreaseFactor: 1.5,
		DecreaseFactor: 0.7,
		MinCPU:         0.1,
		MaxCPU:         4.0,
		MinMemory:      "64M",
		MaxMemory:      "4096M",
	}
}

// Scenario 1: three consecutive high-CPU ticks trigger an increase;
// the following tick (after counters reset) yields none.
func TestSteadyHighCPUTriggersIncrease(t *testing.T) {
	st := &state.ServiceState{}
	th := thresholds()
	adj := adjustment()
	services := config.ServicesConfig{}

	m := metrics.ResourceMetrics{CPULimit: 1.0, CPUPercent: 0.9}

	var d AdjustmentDecision
	for i := 0; i < 3; i++ {
		d = Evaluate("web", m, st, th, adj, services)
	}

	assert.Equal(t, ActionIncrease, d.Action)
	assert.Equal(t, ResourceCPU, d.ResourceType)
	assert.Equal(t, 1.5, d.NewCPU)

	st.RecordSuccess(time.Now())
	d = Evaluate("web", m, st, th, adj, services)
	assert.Equal(t, ActionNone, d.Action)
}

// Scenario 3: a critical service is never decreased.
func TestCriticalServiceIgnoresLow(t *testing.T) {
	st := &state.ServiceState{}
	th := thresholds()
	adj := adjustment()
	services := config.ServicesConfig{Critical: []string{"db"}}

	m := metrics.ResourceMetrics{CPULimit: 1.0, CPUPercent: 0.05}

	var d AdjustmentDecision
	for i := 0; i < 6; i++ {
		d = Evaluate("db", m, st, th, adj, services)
		assert.Equal(t, ActionNone, d.Action)
	}
}

// Scenario 4: high CPU and high memory on the same tick upgrades to "both".
func TestMixedHighCPUAndMemoryUpgradesToBoth(t *testing.T) {
	st := &state.ServiceState{}
	th := thresholds()
	adj := adjustment()
	services := config.ServicesConfig{}

	m := metrics.ResourceMetrics{CPULimit: 1.0, CPUPercent: 0.9, MemoryLimit: 256 * 1024 * 1024, MemoryPercent: 0.9}

	var d AdjustmentDecision
	for i := 0; i < 3; i++ {
		d = Evaluate("web", m, st, th, adj, services)
	}

	assert.Equal(t, ActionIncrease, d.Action)
	assert.Equal(t, ResourceBoth, d.ResourceType)
	assert.Equal(t, 1.5, d.NewCPU)
	assert.Equal(t, "384M", d.NewMemory)
}

// Scenario 6: increase is clamped to max_cpu.
func TestClampOnIncrease(t *testing.T) {
	st := &state.ServiceState{ConsecutiveHighCPU: 2}
	th := thresholds()
	adj := adjustment()
	services := config.ServicesConfig{}

	m := metrics.ResourceMetrics{CPULimit: 3.5, CPUPercent: 0.9}

	d := Evaluate("web", m, st, th, adj, services)
	assert.Equal(t, ActionIncrease, d.Action)
	assert.Equal(t, 4.0, d.NewCPU)
}

func TestDecreaseRespectsBaselineFloor(t *testing.T) {
	st := &state.ServiceState{ConsecutiveLowCPU: 2}
	th := thresholds()
	adj := adjustment()
	services := config.ServicesConfig{
		Baseline: map[string]config.ServiceBaseline{"web": {CPU: 1.0, Memory: "128M"}},
	}

	m := metrics.ResourceMetrics{CPULimit: 1.2, CPUPercent: 0.05}

	d := Evaluate("web", m, st, th, adj, services)
	assert.Equal(t, ActionDecrease, d.Action)
	assert.Equal(t, 1.0, d.NewCPU) // floor is the baseline, not current_cpu*DF (0.84)
}

func TestZeroLimitFallsThroughMiddleBranchAndResetsCounters(t *testing.T) {
	st := &state.ServiceState{ConsecutiveHighCPU: 5, ConsecutiveLowCPU: 0}
	th := thresholds()
	adj := adjustment()
	services := config.ServicesConfig{}

	m := metrics.ResourceMetrics{CPULimit: 0, CPUPercent: 0}

	d := Evaluate("web", m, st, th, adj, services)
	assert.Equal(t, ActionNone, d.Action)
	assert.Equal(t, 0, st.ConsecutiveHighCPU)
	assert.Equal(t, 0, st.ConsecutiveLowCPU)
}

func TestZeroMemoryLimitFallsThroughMiddleBranchAndResetsCounters(t *testing.T) {
	st := &state.ServiceState{ConsecutiveHighMemory: 5, ConsecutiveLowMemory: 0}
	th := thresholds()
	adj := adjustment()
	services := config.ServicesConfig{}

	m := metrics.ResourceMetrics{CPULimit: 1.0, CPUPercent: 0.5, MemoryLimit: 0, MemoryPercent: 0}

	var d AdjustmentDecision
	for i := 0; i < 6; i++ {
		d = Evaluate("web", m, st, th, adj, services)
		assert.Equal(t, ActionNone, d.Action)
		assert.Equal(t, 0, st.ConsecutiveHighMemory)
		assert.Equal(t, 0, st.ConsecutiveLowMemory)
	}
}
