package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load loads configuration from a file path. If path is empty, it
// searches ConfigPaths in order, then falls back to defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		for _, p := range ConfigPaths() {
			if p == "" {
				continue
			}
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		if err := ApplyEnvOverrides(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDie loads configuration or exits on error.
func LoadOrDie(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// ApplyEnvOverrides applies environment variable overrides on top of
// the loaded configuration. It is exported because the controller loop
// re-invokes it on every tick to re-resolve thresholds and factors from
// the environment rather than freezing these values at startup.
func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PROMETHEUS_URL"); v != "" {
		cfg.Monitoring.PrometheusURL = v
	}
	if v := os.Getenv("DOCKER_HOST"); v != "" {
		cfg.Docker.Host = v
	}

	if v := os.Getenv("CPU_HIGH_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CPU_HIGH_THRESHOLD: %w", err)
		}
		cfg.Thresholds.CPUHigh = f
	}
	if v := os.Getenv("CPU_LOW_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CPU_LOW_THRESHOLD: %w", err)
		}
		cfg.Thresholds.CPULow = f
	}
	if v := os.Getenv("MEMORY_HIGH_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MEMORY_HIGH_THRESHOLD: %w", err)
		}
		cfg.Thresholds.MemoryHigh = f
	}
	if v := os.Getenv("MEMORY_LOW_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MEMORY_LOW_THRESHOLD: %w", err)
		}
		cfg.Thresholds.MemoryLow = f
	}

	if v := os.Getenv("INCREASE_FACTOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("INCREASE_FACTOR: %w", err)
		}
		cfg.Adjustment.IncreaseFactor = f
	}
	if v := os.Getenv("DECREASE_FACTOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DECREASE_FACTOR: %w", err)
		}
		cfg.Adjustment.DecreaseFactor = f
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHECK_INTERVAL: %w", err)
		}
		cfg.Monitoring.CheckIntervalS = n
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
		cfg.Logging.Output = "file"
	}

	return nil
}

// Save writes the configuration to path as TOML.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid configuration: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateExampleConfig writes a populated example configuration to
// path.
func GenerateExampleConfig(path string) error {
	cfg := DefaultConfig()
	cfg.Services.Monitored = []string{"web", "worker"}
	cfg.Services.Critical = []string{"worker"}
	cfg.Services.Baseline = map[string]ServiceBaseline{
		"web": {CPU: 0.25, Memory: "128M"},
	}
	return Save(cfg, path)
}
