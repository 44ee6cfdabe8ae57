// Package actuator implements the two ways the resource manager can
// enact an adjustment decision: a direct in-place runtime update, or
// an external blue/green deployment script.
package actuator

import (
	"context"

	"github.com/acme/resourcemgr/pkg/decision"
)

// Actuator enacts an AdjustmentDecision for a service. Implementations
// must not mutate service state on success; the controller loop owns
// that.
type Actuator interface {
	Apply(ctx context.Context, d decision.AdjustmentDecision) Result
}

// Result carries the outcome of a single actuation attempt, including
// enough detail for the controller to choose which notification event
// to emit.
type Result struct {
	Success bool
	Stderr  string
	Err     error
	TimedOut bool
}
