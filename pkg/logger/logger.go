// Package logger builds the zap loggers every binary and package in this
// module uses, following the same New(serviceName) convention the rest of
// the fleet's services use for consistent, structured log output.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logging profile for a service.
type Config struct {
	// Development enables human-readable, colorized console output and
	// DEBUG-level verbosity. Production builds should leave this false
	// for JSON output suited to log aggregation.
	Development bool
	// Level overrides the default level (Info in production, Debug in
	// development) when non-empty. Accepts zap's level names.
	Level string
}

// New builds a *zap.Logger tagged with service, honoring cfg.
func New(service string, cfg Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	base, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return base.With(zap.String("service", service)), nil
}

// Must is New, panicking on error. Intended for cmd/ entrypoints where a
// broken logging configuration should fail fast.
func Must(service string, cfg Config) *zap.Logger {
	l, err := New(service, cfg)
	if err != nil {
		panic(err)
	}
	return l
}
