// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type CacheConfig struct {
	// Driver selects the snapshot cache: "none", "memory" or "redis".
	Driver     string `yaml:"driver"`
	TTLSeconds int    `yaml:"ttl_seconds"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPassword string `yaml:"-"` // Loaded from environment
}

type AvailabilityConfig struct {
	// DebounceMS coalesces change-event bursts into one recompute. Zero
	// disables coalescing.
	DebounceMS int `yaml:"debounce_ms"`
}

type JobsConfig struct {
	// CompletionSweepCron schedules the job that marks past confirmed
	// bookings as completed. Standard five-field cron syntax.
	CompletionSweepCron string `yaml:"completion_sweep_cron"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
	} `yaml:"app"`

	Database     DatabaseConfig     `yaml:"database"`
	Cache        CacheConfig        `yaml:"cache"`
	Availability AvailabilityConfig `yaml:"availability"`
	Jobs         JobsConfig         `yaml:"jobs"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.Cache.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Cache.Driver {
	case "", "none", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required for redis cache")
		}
	default:
		return fmt.Errorf("unsupported cache driver: %s", c.Cache.Driver)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache ttl must be 0 or greater")
	}

	if c.Availability.DebounceMS < 0 {
		return fmt.Errorf("availability debounce must be 0 or greater")
	}

	if c.Jobs.CompletionSweepCron != "" {
		if _, err := cron.ParseStandard(c.Jobs.CompletionSweepCron); err != nil {
			return fmt.Errorf("invalid completion sweep cron %q: %w", c.Jobs.CompletionSweepCron, err)
		}
	}

	return nil
}
