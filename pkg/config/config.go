// Package config provides configuration management for the resource
// manager. Supports TOML configuration files with environment variable
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/acme/resourcemgr/pkg/logger"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingValue  = errors.New("missing required configuration value")
)

// Config holds the full resource manager configuration.
type Config struct {
	Monitoring    MonitoringConfig    `toml:"monitoring"`
	Docker        DockerConfig        `toml:"docker"`
	Thresholds    ThresholdsConfig    `toml:"thresholds"`
	Adjustment    AdjustmentConfig    `toml:"adjustment"`
	Services      ServicesConfig      `toml:"services"`
	Automation    AutomationConfig    `toml:"automation"`
	BlueGreen     BlueGreenConfig     `toml:"blue_green"`
	Notifications NotificationsConfig `toml:"notifications"`
	Metrics       MetricsConfig       `toml:"metrics"`
	Logging       LoggingConfig       `toml:"logging"`
}

// MonitoringConfig configures the metrics backend and tick cadence.
type MonitoringConfig struct {
	PrometheusURL   string `toml:"prometheus_url" env:"PROMETHEUS_URL"`
	AnalysisWindow  string `toml:"analysis_window"`
	CheckIntervalS  int    `toml:"check_interval" env:"CHECK_INTERVAL"`
}

// DockerConfig configures the container runtime endpoint.
type DockerConfig struct {
	Host string `toml:"host" env:"DOCKER_HOST"`
}

// ThresholdsConfig configures the hysteresis thresholds.
type ThresholdsConfig struct {
	CPUHigh           float64 `toml:"cpu_high" env:"CPU_HIGH_THRESHOLD"`
	CPULow            float64 `toml:"cpu_low" env:"CPU_LOW_THRESHOLD"`
	MemoryHigh        float64 `toml:"memory_high" env:"MEMORY_HIGH_THRESHOLD"`
	MemoryLow         float64 `toml:"memory_low" env:"MEMORY_LOW_THRESHOLD"`
	ConsecutiveChecks int     `toml:"consecutive_checks"`
}

// AdjustmentConfig configures the adjustment arithmetic and gating
// windows.
type AdjustmentConfig struct {
	IncreaseFactor       float64 `toml:"increase_factor" env:"INCREASE_FACTOR"`
	DecreaseFactor       float64 `toml:"decrease_factor" env:"DECREASE_FACTOR"`
	MinCPU               float64 `toml:"min_cpu"`
	MaxCPU               float64 `toml:"max_cpu"`
	MinMemory            string  `toml:"min_memory"`
	MaxMemory            string  `toml:"max_memory"`
	CooldownPeriodS      int     `toml:"cooldown_period"`
	MaxAdjustmentsPerDay int     `toml:"max_adjustments_per_day"`
}

// ServiceBaseline is a per-service decrease floor.
type ServiceBaseline struct {
	CPU    float64 `toml:"cpu"`
	Memory string  `toml:"memory"`
}

// ServicesConfig lists which services are monitored, which are
// critical, and any per-service baselines.
type ServicesConfig struct {
	Monitored []string                   `toml:"monitored"`
	Critical  []string                   `toml:"critical"`
	Baseline  map[string]ServiceBaseline `toml:"baseline"`
}

// AutomationConfig toggles the controller loop's actuation behavior.
type AutomationConfig struct {
	Enabled bool `toml:"enabled"`
	DryRun  bool `toml:"dry_run"`
}

// BlueGreenConfig configures the external blue/green actuator.
type BlueGreenConfig struct {
	Enabled            bool   `toml:"enabled"`
	Script             string `toml:"script"`
	HealthCheckTimeoutS int   `toml:"health_check_timeout"`
}

// AlertmanagerChannel configures the external alert sink.
type AlertmanagerChannel struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
}

// LogfileChannel configures the structured-log sink.
type LogfileChannel struct {
	Enabled bool `toml:"enabled"`
}

// NotificationChannels groups the two notifier sinks.
type NotificationChannels struct {
	Alertmanager AlertmanagerChannel `toml:"alertmanager"`
	Logfile      LogfileChannel      `toml:"logfile"`
}

// NotificationsConfig configures the Notifier.
type NotificationsConfig struct {
	Enabled  bool                 `toml:"enabled"`
	Events   []string             `toml:"events"`
	Channels NotificationChannels `toml:"channels"`
}

// MetricsConfig configures the internal operational metrics exposition.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Format string `toml:"format"`
	Output string `toml:"output"`
	File   string `toml:"file" env:"LOG_FILE"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Monitoring: MonitoringConfig{
			PrometheusURL:  "http://localhost:9090",
			AnalysisWindow: "5m",
			CheckIntervalS: 60,
		},
		Docker: DockerConfig{
			Host: "unix:///var/run/docker.sock",
		},
		Thresholds: ThresholdsConfig{
			CPUHigh:           0.8,
			CPULow:            0.2,
			MemoryHigh:        0.8,
			MemoryLow:         0.2,
			ConsecutiveChecks: 3,
		},
		Adjustment: AdjustmentConfig{
			IncreaseFactor:       1.5,
			DecreaseFactor:       0.7,
			MinCPU:               0.1,
			MaxCPU:               4.0,
			MinMemory:            "64M",
			MaxMemory:            "4096M",
			CooldownPeriodS:      300,
			MaxAdjustmentsPerDay: 10,
		},
		Services: ServicesConfig{
			Monitored: []string{},
			Critical:  []string{},
			Baseline:  map[string]ServiceBaseline{},
		},
		Automation: AutomationConfig{
			Enabled: true,
			DryRun:  false,
		},
		BlueGreen: BlueGreenConfig{
			Enabled:             false,
			Script:              "",
			HealthCheckTimeoutS: 30,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Events:  []string{"resource_adjustment", "blue_green_deployment", "deployment_failure"},
			Channels: NotificationChannels{
				Alertmanager: AlertmanagerChannel{Enabled: false},
				Logfile:      LogfileChannel{Enabled: true},
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File:   "",
		},
	}
}

// ConfigPaths returns the default configuration file paths to check,
// in order, when no explicit path is given.
func ConfigPaths() []string {
	return []string{
		os.Getenv("CONFIG_PATH"),
		"/etc/resourcemgr/config.toml",
		"./config.toml",
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Monitoring.PrometheusURL == "" {
		return fmt.Errorf("%w: monitoring.prometheus_url is required", ErrInvalidConfig)
	}
	if c.Monitoring.CheckIntervalS <= 0 {
		return fmt.Errorf("%w: monitoring.check_interval must be positive", ErrInvalidConfig)
	}

	if c.Thresholds.CPUHigh <= c.Thresholds.CPULow {
		return fmt.Errorf("%w: thresholds.cpu_high must exceed thresholds.cpu_low", ErrInvalidConfig)
	}
	if c.Thresholds.MemoryHigh <= c.Thresholds.MemoryLow {
		return fmt.Errorf("%w: thresholds.memory_high must exceed thresholds.memory_low", ErrInvalidConfig)
	}
	if c.Thresholds.ConsecutiveChecks <= 0 {
		return fmt.Errorf("%w: thresholds.consecutive_checks must be positive", ErrInvalidConfig)
	}

	if c.Adjustment.IncreaseFactor <= 1.0 {
		return fmt.Errorf("%w: adjustment.increase_factor must exceed 1.0", ErrInvalidConfig)
	}
	if c.Adjustment.DecreaseFactor <= 0 || c.Adjustment.DecreaseFactor >= 1.0 {
		return fmt.Errorf("%w: adjustment.decrease_factor must be in (0, 1)", ErrInvalidConfig)
	}
	if c.Adjustment.MinCPU <= 0 || c.Adjustment.MaxCPU <= c.Adjustment.MinCPU {
		return fmt.Errorf("%w: adjustment.max_cpu must exceed adjustment.min_cpu", ErrInvalidConfig)
	}
	if _, err := ParseMemory(c.Adjustment.MinMemory); err != nil {
		return fmt.Errorf("%w: adjustment.min_memory: %w", ErrInvalidConfig, err)
	}
	if _, err := ParseMemory(c.Adjustment.MaxMemory); err != nil {
		return fmt.Errorf("%w: adjustment.max_memory: %w", ErrInvalidConfig, err)
	}
	if c.Adjustment.CooldownPeriodS < 0 {
		return fmt.Errorf("%w: adjustment.cooldown_period cannot be negative", ErrInvalidConfig)
	}
	if c.Adjustment.MaxAdjustmentsPerDay <= 0 {
		return fmt.Errorf("%w: adjustment.max_adjustments_per_day must be positive", ErrInvalidConfig)
	}

	for name, baseline := range c.Services.Baseline {
		if _, err := ParseMemory(baseline.Memory); err != nil {
			return fmt.Errorf("%w: services.baseline[%s].memory: %w", ErrInvalidConfig, name, err)
		}
	}

	if c.BlueGreen.Enabled {
		if c.BlueGreen.Script == "" {
			return fmt.Errorf("%w: blue_green.script is required when blue_green.enabled", ErrInvalidConfig)
		}
		if c.BlueGreen.HealthCheckTimeoutS <= 0 {
			return fmt.Errorf("%w: blue_green.health_check_timeout must be positive", ErrInvalidConfig)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: logging.level must be one of: debug, info, warn, error", ErrInvalidConfig)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("%w: logging.format must be one of: json, text", ErrInvalidConfig)
	}

	if c.Notifications.Channels.Alertmanager.Enabled && c.Notifications.Channels.Alertmanager.URL == "" {
		return fmt.Errorf("%w: notifications.channels.alertmanager.url is required when enabled", ErrInvalidConfig)
	}

	if c.BlueGreen.Enabled && !containsString(c.Notifications.Events, "blue_green_deployment") {
		// Non-fatal: the blue/green success path would emit an event the
		// allow-list drops silently. Warn at load time rather than fail.
		warnMissingEvent("blue_green_deployment")
	}
	if !containsString(c.Notifications.Events, "resource_adjustment") {
		warnMissingEvent("resource_adjustment")
	}

	return nil
}

func warnMissingEvent(event string) {
	logger.Global().Warn("notifications.events is missing an actuation event name",
		"event", event)
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
