package logger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/servicedesk/internal/config"
)

// Module exposes a configured Zap logger to the Fx container.
var Module = fx.Provide(New)

// New builds the application logger and flushes it when the app stops.
func New(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, err := Build(cfg.Observability)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func(context.Context) error {
		// syncing a terminal fails on most platforms
		_ = logger.Sync()
		return nil
	}))
	return logger, nil
}

// Build creates a logger tagged with service and environment. "console"
// writes colored human readable lines; anything else writes JSON.
func Build(obs config.Observability) (*zap.Logger, error) {
	settings := jsonSettings()
	if obs.LogEncoding == "console" {
		settings = consoleSettings()
	}
	settings.Level = zap.NewAtomicLevelAt(ParseLevel(obs.LogLevel))

	logger, err := settings.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("service", obs.ServiceName),
		zap.String("environment", obs.Environment),
	), nil
}

func jsonSettings() zap.Config {
	settings := zap.NewProductionConfig()
	settings.Encoding = "json"

	enc := &settings.EncoderConfig
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	return settings
}

func consoleSettings() zap.Config {
	settings := zap.NewDevelopmentConfig()

	enc := &settings.EncoderConfig
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return settings
}

// ParseLevel maps a level name to zap. Unknown names mean info.
func ParseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
