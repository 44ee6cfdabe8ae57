package actuator

import (
	"context"
	"fmt"

	"github.com/acme/resourcemgr/pkg/config"
	"github.com/acme/resourcemgr/pkg/decision"
)

// ContainerResolver finds a container ID for a service name and
// applies a new CPU/memory pair to it. pkg/docker.Client satisfies
// this.
type ContainerResolver interface {
	FindContainerByService(ctx context.Context, name string) (string, error)
	ContainerUpdate(ctx context.Context, containerID string, cpuCores float64, memoryBytes int64) error
}

// DockerActuator applies a decision directly against the running
// container via the Docker Engine API. Any error is a failure.
type DockerActuator struct {
	docker ContainerResolver
}

// NewDockerActuator builds a direct actuator backed by docker.
func NewDockerActuator(docker ContainerResolver) *DockerActuator {
	return &DockerActuator{docker: docker}
}

// Apply translates new_cpu/new_memory into the runtime's resource
// fields and issues one in-place update.
func (a *DockerActuator) Apply(ctx context.Context, d decision.AdjustmentDecision) Result {
	containerID, err := a.docker.FindContainerByService(ctx, d.ServiceName)
	if err != nil {
		return Result{Success: false, Err: fmt.Errorf("resolve container for %s: %w", d.ServiceName, err)}
	}

	newMemoryBytes, err := config.ParseMemory(d.NewMemory)
	if err != nil {
		return Result{Success: false, Err: fmt.Errorf("parse new_memory %q: %w", d.NewMemory, err)}
	}

	cpuCores := 0.0
	if d.ResourceType == decision.ResourceCPU || d.ResourceType == decision.ResourceBoth {
		cpuCores = d.NewCPU
	}
	memoryBytes := int64(0)
	if d.ResourceType == decision.ResourceMemory || d.ResourceType == decision.ResourceBoth {
		memoryBytes = newMemoryBytes
	}

	if err := a.docker.ContainerUpdate(ctx, containerID, cpuCores, memoryBytes); err != nil {
		return Result{Success: false, Err: err}
	}

	return Result{Success: true}
}
