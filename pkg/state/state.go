// Package state holds the resource manager's per-service control
// state: hysteresis counters, cooldown bookkeeping, and the daily
// actuation budget. The store has a single writer (the controller
// loop) and is never persisted.
package state

import (
	"sync"
	"time"

	"github.com/acme/resourcemgr/pkg/clock"
)

// ServiceState is the per-service control record, created lazily on
// first observation.
type ServiceState struct {
	ConsecutiveHighCPU    int
	ConsecutiveLowCPU     int
	ConsecutiveHighMemory int
	ConsecutiveLowMemory  int
	LastAdjustment        *time.Time
	AdjustmentsToday      int
	LastReset             time.Time
}

// Store is a mutex-protected map from service name to ServiceState.
// All mutation happens from the controller's single goroutine; the
// mutex makes Get and Snapshot safe to call from other goroutines
// without coordinating with the loop.
type Store struct {
	mu       sync.Mutex
	services map[string]*ServiceState
	clock    clock.Clock
}

// NewStore creates an empty store. clk is used to stamp LastReset on
// lazy creation; pass nil to use the real system clock.
func NewStore(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		services: make(map[string]*ServiceState),
		clock:    clk,
	}
}

// Get returns the ServiceState for name, creating it if this is the
// first observation for that service.
func (s *Store) Get(name string) *ServiceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.services[name]
	if !ok {
		st = &ServiceState{LastReset: s.clock.Now()}
		s.services[name] = st
	}
	return st
}

// Snapshot returns a shallow copy of every known service's state, for
// read-only reporting.
func (s *Store) Snapshot() map[string]ServiceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ServiceState, len(s.services))
	for name, st := range s.services {
		out[name] = *st
	}
	return out
}

// RecordSuccess resets the four consecutive counters and advances the
// cooldown/daily bookkeeping after a successful actuation.
func (st *ServiceState) RecordSuccess(now time.Time) {
	st.ConsecutiveHighCPU = 0
	st.ConsecutiveLowCPU = 0
	st.ConsecutiveHighMemory = 0
	st.ConsecutiveLowMemory = 0
	st.LastAdjustment = &now
	st.AdjustmentsToday++
}

// ResetDailyIfNewDay zeroes AdjustmentsToday and advances LastReset
// when now falls on a different calendar day than the last reset.
// Returns true if a reset happened.
func (st *ServiceState) ResetDailyIfNewDay(now time.Time) bool {
	if sameDay(st.LastReset, now) {
		return false
	}
	st.AdjustmentsToday = 0
	st.LastReset = now
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
