package actuator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/acme/resourcemgr/pkg/decision"
)

// BlueGreenActuator applies a decision by invoking an external
// deployment script: <script> <service> <new_cpu_cores> <new_memory>.
// Exit 0 is success; non-zero exit or a timeout is a failure, and
// stderr is captured for the failure notification either way.
type BlueGreenActuator struct {
	script  string
	timeout time.Duration
}

// NewBlueGreenActuator builds a blue/green actuator invoking script,
// bounded by timeout.
func NewBlueGreenActuator(script string, timeout time.Duration) *BlueGreenActuator {
	return &BlueGreenActuator{script: script, timeout: timeout}
}

// Apply runs the configured script with the decision's new values.
func (a *BlueGreenActuator) Apply(ctx context.Context, d decision.AdjustmentDecision) Result {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cpuArg := strconv.FormatFloat(d.NewCPU, 'f', 2, 64)
	cmd := exec.CommandContext(ctx, a.script, d.ServiceName, cpuArg, d.NewMemory)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{Success: false, TimedOut: true, Stderr: stderr.String(), Err: fmt.Errorf("blue/green script timed out after %s", a.timeout)}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{Success: false, Stderr: stderr.String(), Err: fmt.Errorf("blue/green script exited %d", exitErr.ExitCode())}
		}
		return Result{Success: false, Stderr: stderr.String(), Err: err}
	}

	return Result{Success: true}
}
