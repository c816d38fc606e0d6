package telegram

import (
	"github.com/lumapag/pixgate/internal/config"
	"github.com/lumapag/pixgate/internal/notify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the application's Notifier: Telegram when a bot token is
// configured, the log sink otherwise.
var Module = fx.Module("notify",
	fx.Provide(func(cfg config.Config, log *zap.Logger) notify.Notifier {
		if cfg.TelegramBotToken == "" {
			log.Warn("no bot token configured; notifications go to the log")
			return notify.NewLogSink(log)
		}
		return NewSink(cfg.TelegramBotToken, log)
	}),
)
