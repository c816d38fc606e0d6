package logger

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumapag/pixgate/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger: JSON in production, console encoding
// in development environments.
func New(cfg config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = "json"
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if isDevEnv(cfg.Environment) {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	log = log.With(
		zap.String("service", cfg.AppName),
		zap.String("version", cfg.AppVersion),
	)

	zap.ReplaceGlobals(log)
	return log, nil
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func registerHooks(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
}

var Module = fx.Module("logger",
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
