package notify

import (
	"context"

	"github.com/bookify/apiserver/internal/logging"
)

// LogSender writes messages to the log instead of delivering them. Used in
// development.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.Info(ctx, "mail not delivered, log backend", "to", to, "subject", subject, "body", htmlBody)
	return nil
}
