// Package config loads the workload manager's runtime configuration. It is
// ambient, host-process plumbing: the dispatch core never reads a config
// file or an environment variable itself, it only ever consumes the
// ModelInfo and GPUCount values this package resolves.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete configuration for the wlm-server binary.
type Config struct {
	Environment string        `mapstructure:"environment"`
	Server      ServerConfig  `mapstructure:"server"`
	Logging     LoggingConfig `mapstructure:"logging"`
	Manager     ManagerConfig `mapstructure:"manager"`
	Models      []ModelConfig `mapstructure:"models"`
}

// ServerConfig controls the admin HTTP surface (health, metrics, pool
// introspection, reconciliation triggers and a demo prediction endpoint).
// The production submission path is the Go API, not this surface.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig controls the zap logger built at startup.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ManagerConfig configures the WorkloadManager instance itself.
type ManagerConfig struct {
	GPUCount        int `mapstructure:"gpu_count"`
	MaxTotalWorkers int `mapstructure:"max_total_workers"`
}

// ModelConfig is the on-disk/env representation of domain.ModelInfo.
type ModelConfig struct {
	Name          string        `mapstructure:"name"`
	MinWorkers    int           `mapstructure:"min_workers"`
	MaxWorkers    int           `mapstructure:"max_workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	MaxBatchDelay time.Duration `mapstructure:"max_batch_delay"`
	QueueSize     int           `mapstructure:"queue_size"`
	Accelerated   bool          `mapstructure:"accelerated"`
}

// Load reads configuration from configPath (when set), ./config or the
// working directory, overridable by WLM_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WLM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")

	v.SetDefault("manager.gpu_count", 0)
	v.SetDefault("manager.max_total_workers", 64)
}
