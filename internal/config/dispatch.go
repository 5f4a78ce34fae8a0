package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DispatchConfig carries the operational knobs of the campaign dispatcher.
// SendingEnabled is the global kill switch: flipping it off halts every
// tenant's outbound sending without a restart.
type DispatchConfig struct {
	SendingEnabled bool `mapstructure:"sendingEnabled"`

	BatchSize  int `mapstructure:"batchSize"`
	MaxRetries int `mapstructure:"maxRetries"`

	BaseDelayMs int `mapstructure:"baseDelayMs"`
	MinDelayMs  int `mapstructure:"minDelayMs"`
	MaxDelayMs  int `mapstructure:"maxDelayMs"`

	FailureStepMs      int `mapstructure:"failureStepMs"`
	CooldownSeconds    int `mapstructure:"cooldownSeconds"`
	CooldownMaxSeconds int `mapstructure:"cooldownMaxSeconds"`
}

func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		SendingEnabled:     true,
		BatchSize:          10,
		MaxRetries:         3,
		BaseDelayMs:        1000,
		MinDelayMs:         250,
		MaxDelayMs:         15000,
		FailureStepMs:      500,
		CooldownSeconds:    60,
		CooldownMaxSeconds: 900,
	}
}

type DispatchConfigHolder struct {
	current atomic.Value // holds DispatchConfig
}

// NewDispatchConfigHolder loads dispatch.yml and keeps it hot-reloaded so the
// kill switch takes effect without a restart.
func NewDispatchConfigHolder() (*DispatchConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("dispatch")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/blastwave/config")
	v.AddConfigPath("/etc/blastwave")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BLASTWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDispatchConfig()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("dispatch.sendingEnabled", defaults.SendingEnabled)
		v.SetDefault("dispatch.batchSize", defaults.BatchSize)
		v.SetDefault("dispatch.maxRetries", defaults.MaxRetries)
		v.SetDefault("dispatch.baseDelayMs", defaults.BaseDelayMs)
		v.SetDefault("dispatch.minDelayMs", defaults.MinDelayMs)
		v.SetDefault("dispatch.maxDelayMs", defaults.MaxDelayMs)
		v.SetDefault("dispatch.failureStepMs", defaults.FailureStepMs)
		v.SetDefault("dispatch.cooldownSeconds", defaults.CooldownSeconds)
		v.SetDefault("dispatch.cooldownMaxSeconds", defaults.CooldownMaxSeconds)
	}

	var cfg DispatchConfig
	if err := v.UnmarshalKey("dispatch", &cfg); err != nil {
		return nil, err
	}
	if err := validateDispatchConfig(cfg); err != nil {
		return nil, err
	}

	holder := &DispatchConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DispatchConfig
		if err := v.UnmarshalKey("dispatch", &updated); err != nil {
			log.Printf("[dispatch-config] reload failed: %v", err)
			return
		}
		if err := validateDispatchConfig(updated); err != nil {
			log.Printf("[dispatch-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[dispatch-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *DispatchConfigHolder) Get() DispatchConfig {
	return h.current.Load().(DispatchConfig)
}

// Set replaces the current config. Intended for tests.
func (h *DispatchConfigHolder) Set(cfg DispatchConfig) {
	h.current.Store(cfg)
}

func validateDispatchConfig(cfg DispatchConfig) error {
	if cfg.BatchSize <= 0 {
		return errors.New("dispatch.batchSize must be positive")
	}
	if cfg.MaxRetries <= 0 {
		return errors.New("dispatch.maxRetries must be positive")
	}
	if cfg.MinDelayMs < 0 || cfg.BaseDelayMs < cfg.MinDelayMs || cfg.MaxDelayMs < cfg.BaseDelayMs {
		return errors.New("dispatch delay bounds must satisfy min <= base <= max")
	}
	if cfg.CooldownSeconds <= 0 || cfg.CooldownMaxSeconds < cfg.CooldownSeconds {
		return errors.New("dispatch cooldown bounds must satisfy 0 < cooldown <= max")
	}
	return nil
}
