// Package docker provides a restricted Docker client used by the
// resource manager's actuators and metrics fallback path. This client
// is scoped to container inspection, listing, and live resource
// updates — it does not create, start, or remove containers.
package docker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

var (
	ErrContainerNotFound = errors.New("container not found")
	ErrInvalidOperation  = errors.New("invalid operation for this client")
)

// Scope defines the allowed operations for this client.
type Scope string

const (
	ScopeInspect Scope = "inspect" // Allow container inspection and listing
	ScopeUpdate  Scope = "update"  // Allow live resource updates (CPU/memory)
)

// Client is a restricted Docker client with scoping, tuned for the
// low-latency resource queries and updates the controller loop issues
// on every tick.
type Client struct {
	client        *client.Client
	scopes        map[Scope]bool
	latencyTarget time.Duration
}

// Config holds client configuration.
type Config struct {
	Host          string        // Docker daemon address
	APIVersion    string        // API version
	Scopes        []Scope       // Allowed operations
	LatencyTarget time.Duration // Target latency for operations
}

// New creates a new restricted Docker client.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = "unix:///var/run/docker.sock"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "1.45"
	}
	if cfg.LatencyTarget == 0 {
		cfg.LatencyTarget = 2 * time.Second
	}

	cli, err := client.NewClientWithOpts(
		client.WithHost(cfg.Host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	scopes := make(map[Scope]bool)
	if len(cfg.Scopes) == 0 {
		scopes[ScopeInspect] = true
		scopes[ScopeUpdate] = true
	} else {
		for _, scope := range cfg.Scopes {
			scopes[scope] = true
		}
	}

	return &Client{
		client:        cli,
		scopes:        scopes,
		latencyTarget: cfg.LatencyTarget,
	}, nil
}

// hasScope checks if the client has the required scope.
func (c *Client) hasScope(required Scope) bool {
	return c.scopes[required]
}

// ContainerUpdate updates the CPU and memory resources of a running
// container. cpuCores is expressed in fractional CPU cores and is
// converted to a CPU quota against the standard 100000us period;
// memoryBytes is the new hard memory limit. A zero value leaves the
// corresponding resource unchanged.
// Scope required: ScopeUpdate
func (c *Client) ContainerUpdate(ctx context.Context, containerID string, cpuCores float64, memoryBytes int64) error {
	if c.client == nil {
		return fmt.Errorf("docker client not initialized")
	}
	if !c.hasScope(ScopeUpdate) {
		return ErrInvalidOperation
	}

	resources := container.Resources{}
	if cpuCores > 0 {
		resources.CPUPeriod = 100000
		resources.CPUQuota = int64(cpuCores * 100000)
	}
	if memoryBytes > 0 {
		resources.Memory = memoryBytes
	}

	ctx, cancel := context.WithTimeout(ctx, c.latencyTarget)
	defer cancel()

	_, err := c.client.ContainerUpdate(ctx, containerID, container.UpdateConfig{Resources: resources})
	if err != nil {
		return fmt.Errorf("container update failed: %w", err)
	}
	return nil
}

// InspectContainer inspects a container.
// Scope required: ScopeInspect
func (c *Client) InspectContainer(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	if !c.hasScope(ScopeInspect) {
		return types.ContainerJSON{}, ErrInvalidOperation
	}

	ctx, cancel := context.WithTimeout(ctx, c.latencyTarget)
	defer cancel()

	return c.client.ContainerInspect(ctx, containerID)
}

// ListContainers lists containers with an optional filter.
// Scope required: ScopeInspect
func (c *Client) ListContainers(ctx context.Context, all bool, filterArgs filters.Args) ([]types.Container, error) {
	if !c.hasScope(ScopeInspect) {
		return nil, ErrInvalidOperation
	}

	options := container.ListOptions{
		All:     all,
		Filters: filterArgs,
	}

	return c.client.ContainerList(ctx, options)
}

// FindContainerByService returns the first running container whose
// name contains name, matching the same substring convention the
// metrics gateway uses to map a service name onto its time series.
func (c *Client) FindContainerByService(ctx context.Context, name string) (string, error) {
	containers, err := c.ListContainers(ctx, false, filters.Args{})
	if err != nil {
		return "", err
	}
	for _, ctr := range containers {
		for _, n := range ctr.Names {
			if containsSubstring(n, name) {
				return ctr.ID, nil
			}
		}
	}
	return "", ErrContainerNotFound
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// Ping pings the Docker daemon.
func (c *Client) Ping(ctx context.Context) (types.Ping, error) {
	return c.client.Ping(ctx)
}

// Close closes the Docker client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// IsAvailable checks if the Docker daemon is reachable on the default
// socket, ignoring any configured docker.host.
func IsAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cli, err := client.NewClientWithOpts(
		client.WithHost("unix:///var/run/docker.sock"),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return false
	}
	defer cli.Close()

	_, err = cli.Ping(ctx)
	return err == nil
}

// HealthCheck performs a health check on the Docker daemon.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.Ping(ctx)
	return err
}
