package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/lifecycle"
)

// ErrMessageInvalid is returned for messages missing a recipient, subject or body.
var ErrMessageInvalid = errors.New("invalid message")

// Message is an outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With("component", "mailer")}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail sent",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"bytes", len(msg.Text),
	)
	return nil
}

// Validate checks the fields a delivery service requires.
func (msg Message) Validate() error {
	switch {
	case len(strings.TrimSpace(msg.To)) <= 5:
		return fmt.Errorf("%w: recipient", ErrMessageInvalid)
	case len(strings.TrimSpace(msg.Subject)) <= 3:
		return fmt.Errorf("%w: subject", ErrMessageInvalid)
	case strings.TrimSpace(msg.Text) == "":
		return fmt.Errorf("%w: body", ErrMessageInvalid)
	}
	return nil
}

// SendAsync delivers msg in the background. The delivery outlives the
// request that triggered it; failures are only logged.
func SendAsync(ctx context.Context, m Mailer, msg Message, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		return m.Send(ctx, msg)
	}, lifecycle.WithErrorHandler(func(err error) {
		logger.Warn("mail delivery failed", "to", msg.To, "error", err)
	}))
}
