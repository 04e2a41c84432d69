package notify

import (
	"context"

	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

// LogSender no envía nada: renderiza y deja el mail en el log (dev).
type LogSender struct {
	templates *Templates
}

func NewLogSender(templates *Templates) *LogSender {
	return &LogSender{templates: templates}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	r, err := s.templates.Render(msg.Alias, msg.Model)
	if err != nil {
		return err
	}
	logger.From(ctx).Info("email (log driver)",
		logger.Component("LogSender"),
		logger.String("to", msg.To),
		logger.Alias(msg.Alias),
		logger.String("tag", msg.Tag),
		logger.String("subject", r.Subject),
		logger.String("text", r.Text),
	)
	return nil
}
