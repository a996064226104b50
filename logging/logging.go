// Package logging builds the zap logger used by every volt command.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"volt-data/config"
)

// New creates a logger for the given environment. Production gets the JSON
// encoder, everything else the colored console encoder.
func New(environment, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if environment == config.EnvProduction {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	// CLI output goes to stdout; diagnostics stay on stderr.
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}

// FromConfig is New driven by the loaded configuration.
func FromConfig(cfg config.Config) (*zap.Logger, error) {
	return New(cfg.Environment, cfg.LogLevel)
}

// ParseLevel maps the LOG_LEVEL strings onto zap levels.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
