// Package config loads vibedom configuration from defaults, an optional
// YAML file and VIBEDOM_* environment variables.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/chrisuehlinger/vibedom/gc"
	"github.com/chrisuehlinger/vibedom/network"
)

// EnvPrefix prefixes every environment variable, e.g. VIBEDOM_HEAP_MAX_SLOTS.
const EnvPrefix = "VIBEDOM"

// Config is the top level configuration.
type Config struct {
	Heap    gc.Config      `mapstructure:"heap" yaml:"heap"`
	Logger  LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Network network.Config `mapstructure:"network" yaml:"network"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// SetDefaults initializes default values for every key.
func SetDefaults(v *viper.Viper) {
	heap := gc.DefaultConfig()
	v.SetDefault("heap.max_slots", heap.MaxSlots)
	v.SetDefault("heap.collect_every", heap.CollectEvery)
	v.SetDefault("heap.stress", heap.Stress)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vibedom")

	client := network.DefaultConfig()
	v.SetDefault("network.timeout", client.Timeout)
	v.SetDefault("network.max_redirects", client.MaxRedirects)
	v.SetDefault("network.user_agent", client.UserAgent)
	v.SetDefault("network.max_body_bytes", client.MaxBodyBytes)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		panic(errors.Wrap(err, "default config"))
	}
	return cfg
}

// Load reads configuration into v. An empty file means ./vibedom.yaml if it
// exists; a missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("vibedom")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Heap.MaxSlots < 0 {
		return errors.New("heap.max_slots must not be negative")
	}
	if c.Heap.CollectEvery < 0 {
		return errors.New("heap.collect_every must not be negative")
	}
	if c.Network.Timeout <= 0 {
		return errors.New("network.timeout must be positive")
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return errors.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	return nil
}
