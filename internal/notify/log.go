package notify

import (
	"context"
	"log/slog"
)

// LogSender only logs notifications. Used in development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.logger.Info("notification", "to", n.Destination, "title", n.Title, "body", n.Body)
	return nil
}
