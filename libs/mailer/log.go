package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// LogProvider writes messages to the logger instead of sending them. It is
// the provider used when no Resend API key is configured.
type LogProvider struct {
	Logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{Logger: logger}
}

func (l *LogProvider) Name() string {
	return "log"
}

// Send logs the envelope and returns a generated message id. Bodies go to
// debug level only since sign-in alerts carry client addresses.
func (l *LogProvider) Send(ctx context.Context, msg Message) (SendResult, error) {
	id := "log-" + uuid.NewString()
	attrs := []any{
		"provider", l.Name(),
		"from", msg.From,
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
		"html_length", len(msg.HTML),
		"message_id", id,
	}
	for name, value := range msg.Tags {
		attrs = append(attrs, fmt.Sprintf("tag_%s", name), value)
	}
	l.Logger.InfoContext(ctx, "mailer: email logged (not sent)", attrs...)
	if msg.Text != "" {
		l.Logger.DebugContext(ctx, "mailer: email text body", "message_id", id, "text", msg.Text)
	}
	return SendResult{ProviderMessageID: id}, nil
}
