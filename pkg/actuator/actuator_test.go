package actuator

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme/resourcemgr/pkg/decision"
)

type fakeResolver struct {
	containerID      string
	resolveErr       error
	gotCPUCores      float64
	gotMemoryBytes   int64
	updateErr        error
}

func (f *fakeResolver) FindContainerByService(ctx context.Context, name string) (string, error) {
	return f.containerID, f.resolveErr
}

func (f *fakeResolver) ContainerUpdate(ctx context.Context, containerID string, cpuCores float64, memoryBytes int64) error {
	f.gotCPUCores = cpuCores
	f.gotMemoryBytes = memoryBytes
	return f.updateErr
}

func TestDockerActuatorAppliesCPUOnlyDecision(t *testing.T) {
	r := &fakeResolver{containerID: "abc"}
	a := NewDockerActuator(r)

	d := decision.AdjustmentDecision{ServiceName: "web", ResourceType: decision.ResourceCPU, NewCPU: 1.5, NewMemory: "256M"}
	result := a.Apply(context.Background(), d)

	require.True(t, result.Success)
	assert.Equal(t, 1.5, r.gotCPUCores)
	assert.Equal(t, int64(0), r.gotMemoryBytes)
}

func TestDockerActuatorFailsWhenResolveFails(t *testing.T) {
	r := &fakeResolver{resolveErr: assertErr}
	a := NewDockerActuator(r)

	d := decision.AdjustmentDecision{ServiceName: "web", ResourceType: decision.ResourceCPU}
	result := a.Apply(context.Background(), d)

	assert.False(t, result.Success)
	assert.Error(t, result.Err)
}

var assertErr = &testErr{"resolve failed"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func TestBlueGreenActuatorSuccess(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nexit 0\n")
	a := NewBlueGreenActuator(script, 5*time.Second)

	d := decision.AdjustmentDecision{ServiceName: "web", NewCPU: 1.0, NewMemory: "256M"}
	result := a.Apply(context.Background(), d)

	assert.True(t, result.Success)
}

func TestBlueGreenActuatorNonZeroExitCapturesStderr(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho boom >&2\nexit 1\n")
	a := NewBlueGreenActuator(script, 5*time.Second)

	d := decision.AdjustmentDecision{ServiceName: "web", NewCPU: 1.0, NewMemory: "256M"}
	result := a.Apply(context.Background(), d)

	assert.False(t, result.Success)
	assert.False(t, result.TimedOut)
	assert.Contains(t, result.Stderr, "boom")
}

func TestBlueGreenActuatorTimeout(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nsleep 2\nexit 0\n")
	a := NewBlueGreenActuator(script, 50*time.Millisecond)

	d := decision.AdjustmentDecision{ServiceName: "web", NewCPU: 1.0, NewMemory: "256M"}
	result := a.Apply(context.Background(), d)

	assert.False(t, result.Success)
	assert.True(t, result.TimedOut)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "script-*.sh")
	require.NoError(t, err)
	_, err = f.WriteString(body)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, os.Chmod(f.Name(), 0755))
	return f.Name()
}
