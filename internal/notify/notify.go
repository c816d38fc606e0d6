// Package notify is the outbound notification sink. Delivery is best
// effort: a failed notification is logged and dropped, never retried by the
// caller, and never rolls back the state change that triggered it.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// ImageKind says how an attached image is carried.
type ImageKind string

const (
	ImageInline ImageKind = "inline"
	ImageRemote ImageKind = "remote"
)

// Image is an optional attachment: raw bytes or a remote URL.
type Image struct {
	Kind  ImageKind
	Bytes []byte
	URL   string
}

// Notifier delivers a message, optionally with an image, to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, text string, image *Image) error
}

// LogSink writes notifications to the log. It stands in for a real channel
// when none is configured, keeping the reconciliation core runnable.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("notify.log")}
}

func (s *LogSink) Notify(ctx context.Context, userID, text string, image *Image) error {
	fields := []zap.Field{
		zap.String("user_id", userID),
		zap.String("text", text),
	}
	if image != nil {
		fields = append(fields, zap.String("image_kind", string(image.Kind)))
	}
	s.log.Info("notification", fields...)
	return nil
}
