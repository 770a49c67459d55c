// Package notify sends bill reminders: it decides which bills are due a
// reminder, composes the email, delivers it and records the send.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a multipart email with an HTML and a plain-text body.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// LogMailer logs messages instead of sending them. It is used when SMTP is
// not configured, so reminders are still recorded during development.
type LogMailer struct {
	logger *zap.SugaredLogger
}

var _ Mailer = (*LogMailer)(nil)

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *zap.SugaredLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the envelope and reports success.
func (m *LogMailer) Send(_ context.Context, msg *Message) error {
	m.logger.Infow("smtp not configured, skipping delivery",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", len(msg.Attachments),
	)
	return nil
}
