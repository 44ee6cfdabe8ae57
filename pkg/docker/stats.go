package docker

import (
	"context"
	"encoding/json"
	"fmt"
)

// ContainerStats is the CPU/memory snapshot read directly from the
// Docker Engine's stats endpoint. It backs the metrics gateway's
// fallback path when Prometheus has no series for a service yet.
type ContainerStats struct {
	CPUPercent  float64
	CPUCores    float64
	MemoryUsage int64
	MemoryLimit int64
}

// dockerStatsJSON mirrors the subset of the Docker stats API response
// this package decodes.
type dockerStatsJSON struct {
	CPUStats struct {
		CPUUsage struct {
			TotalUsage  uint64   `json:"total_usage"`
			PercpuUsage []uint64 `json:"percpu_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
		OnlineCPUs  uint32 `json:"online_cpus"`
	} `json:"cpu_stats"`
	PreCPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64             `json:"usage"`
		Limit uint64             `json:"limit"`
		Stats map[string]float64 `json:"stats"`
	} `json:"memory_stats"`
}

// GetContainerStats reads a single (non-streaming) stats snapshot for
// containerID from the Docker daemon.
// Scope required: ScopeInspect
func (c *Client) GetContainerStats(ctx context.Context, containerID string) (*ContainerStats, error) {
	if !c.hasScope(ScopeInspect) {
		return nil, ErrInvalidOperation
	}

	resp, err := c.client.ContainerStats(ctx, containerID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get container stats: %w", err)
	}
	defer resp.Body.Close()

	var raw dockerStatsJSON
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	stats := &ContainerStats{
		MemoryUsage: int64(raw.MemoryStats.Usage),
		MemoryLimit: int64(raw.MemoryStats.Limit),
	}

	onlineCPUs := float64(raw.CPUStats.OnlineCPUs)
	if onlineCPUs == 0 {
		onlineCPUs = float64(len(raw.CPUStats.CPUUsage.PercpuUsage))
	}
	if onlineCPUs == 0 {
		onlineCPUs = 1
	}

	cpuDelta := float64(raw.CPUStats.CPUUsage.TotalUsage) - float64(raw.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(raw.CPUStats.SystemUsage) - float64(raw.PreCPUStats.SystemUsage)
	if systemDelta > 0 && cpuDelta > 0 {
		stats.CPUCores = (cpuDelta / systemDelta) * onlineCPUs
		stats.CPUPercent = stats.CPUCores * 100
	}

	return stats, nil
}
