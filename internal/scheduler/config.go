package scheduler

import (
	"os"
	"strconv"
	"time"
)

// Config controls the dispatch sweep interval and fan-out.
type Config struct {
	Enabled             bool
	RunInterval         time.Duration
	MaxCampaignsPerTick int
}

func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		RunInterval:         30 * time.Second,
		MaxCampaignsPerTick: 10,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.MaxCampaignsPerTick <= 0 {
		c.MaxCampaignsPerTick = defaults.MaxCampaignsPerTick
	}
	return c
}

// ProvideConfig reads scheduler overrides from the environment.
func ProvideConfig() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = parsed
		}
	}
	if v := os.Getenv("SCHEDULER_RUN_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.RunInterval = parsed
		}
	}
	if v := os.Getenv("SCHEDULER_MAX_CAMPAIGNS_PER_TICK"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.MaxCampaignsPerTick = parsed
		}
	}
	return cfg.withDefaults()
}
