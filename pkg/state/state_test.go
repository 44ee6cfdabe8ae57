package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/acme/resourcemgr/pkg/clock"
)

func TestGetCreatesLazily(t *testing.T) {
	s := NewStore(nil)
	st := s.Get("web")
	assert.NotNil(t, st)
	assert.Equal(t, 0, st.AdjustmentsToday)

	again := s.Get("web")
	assert.Same(t, st, again)
}

func TestRecordSuccessResetsCountersAndBumpsDailyCount(t *testing.T) {
	st := &ServiceState{ConsecutiveHighCPU: 3, ConsecutiveLowMemory: 2}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	st.RecordSuccess(now)

	assert.Equal(t, 0, st.ConsecutiveHighCPU)
	assert.Equal(t, 0, st.ConsecutiveLowMemory)
	assert.Equal(t, 1, st.AdjustmentsToday)
	assert.Equal(t, now, *st.LastAdjustment)
}

func TestResetDailyIfNewDay(t *testing.T) {
	day1 := time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 2, 0, 1, 0, 0, time.UTC)

	st := &ServiceState{LastReset: day1, AdjustmentsToday: 5}

	assert.False(t, st.ResetDailyIfNewDay(day1.Add(time.Minute)))
	assert.Equal(t, 5, st.AdjustmentsToday)

	assert.True(t, st.ResetDailyIfNewDay(day2))
	assert.Equal(t, 0, st.AdjustmentsToday)
	assert.Equal(t, day2, st.LastReset)
}

func TestNewStoreStampsLastResetFromClock(t *testing.T) {
	now := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)

	s := NewStore(clk)
	st := s.Get("worker")

	assert.Equal(t, now, st.LastReset)
}
