package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"regdesk/internal/platform/config"
)

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	cfg config.SMTP
}

// NewSMTPSender creates an SMTP sender. Returns nil when SMTP is disabled so
// the Notifier falls back to the file log.
func NewSMTPSender(cfg config.SMTP) *SMTPSender {
	if !cfg.Enabled {
		return nil
	}
	return &SMTPSender{cfg: cfg}
}

// Send delivers one plain-text message. A fresh client per message keeps the
// sender stateless; notification volume is far too low for pooling to matter.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
		)
	}
	if s.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
