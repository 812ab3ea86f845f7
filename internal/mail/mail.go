package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/logger"
)

// ErrNotConfigured is returned when mail.host or mail.from is missing
var ErrNotConfigured = errors.New("mail is not configured (set mail.host and mail.from)")

// Attachment is an in-memory file attached to a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a plain text email with optional attachments
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail through an SMTP relay
type SMTPSender struct {
	cfg config.MailConfig
	log *logger.Logger
}

// NewSMTPSender creates a sender from the mail config section
func NewSMTPSender(cfg config.MailConfig, log *logger.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log}
}

// Send builds the message and hands it to the relay. Authentication is only
// attempted when a username is configured.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Configured() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("mail: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = msg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	for _, a := range msg.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Data), a.Filename, a.ContentType); err != nil {
			return fmt.Errorf("mail: attach %s: %w", a.Filename, err)
		}
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	s.log.Debug("sending mail", "to", msg.To, "subject", msg.Subject, "attachments", len(msg.Attachments))
	if err := e.Send(s.cfg.Addr(), auth); err != nil {
		return fmt.Errorf("mail: send to %v: %w", msg.To, err)
	}
	return nil
}
