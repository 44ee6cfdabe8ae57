package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	assert.Equal(t, start, f.Now())

	f.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), f.Now())

	f.Sleep(10 * time.Second)
	assert.Equal(t, start.Add(100*time.Second), f.Now())
}

func TestFakeAdvanceCrossesCalendarDay(t *testing.T) {
	f := NewFake(time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC))
	before := f.Now()

	f.Advance(2 * time.Minute)
	after := f.Now()

	assert.NotEqual(t, before.YearDay(), after.YearDay())
}

func TestRealClockAdvances(t *testing.T) {
	r := New()
	first := r.Now()
	r.Sleep(time.Millisecond)
	second := r.Now()
	assert.True(t, !second.Before(first))
}
