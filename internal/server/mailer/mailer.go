// Package mailer sends transactional email over SMTP.
package mailer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/coursecloud/internal/common"
	"github.com/dmitrijs2005/coursecloud/internal/logging"
	"github.com/dmitrijs2005/coursecloud/internal/server/config"
	"github.com/wneessen/go-mail"
)

// Mailer delivers a single HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

var (
	newMailClient = func(host string, opts ...mail.Option) (*mail.Client, error) {
		return mail.NewClient(host, opts...)
	}

	dialAndSend = func(ctx context.Context, c *mail.Client, msgs ...*mail.Msg) error {
		return c.DialAndSendWithContext(ctx, msgs...)
	}
)

// SMTPMailer is a Mailer talking to an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   logging.Logger
}

// NewSMTPMailer builds an SMTPMailer from the mail settings in cfg. Without
// credentials it sends unauthenticated.
func NewSMTPMailer(cfg *config.Config, logger logging.Logger) *SMTPMailer {
	from := cfg.MailFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		logger:   logger.With("module", "mailer"),
	}
}

func (m *SMTPMailer) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	return opts
}

func (m *SMTPMailer) message(to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

// Send delivers the message. Every failure is reported as
// common.ErrMailDelivery with the cause attached.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := m.message(to, subject, htmlBody)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrMailDelivery, err)
	}

	client, err := newMailClient(m.host, m.options()...)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrMailDelivery, err)
	}

	if err := dialAndSend(ctx, client, msg); err != nil {
		m.logger.Error(ctx, "mail delivery failed", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("%w: %v", common.ErrMailDelivery, err)
	}

	m.logger.Debug(ctx, "mail sent", "to", to, "subject", subject)
	return nil
}
