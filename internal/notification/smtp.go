package notification

import (
	"context"
	"fmt"
	"net"
	"time"

	"tourcrm_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const smtpDialTimeout = 15 * time.Second

// SMTPSender delivers notifications over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) (Delivery, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return Delivery{Status: StatusFailed, Provider: "smtp"}, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(m.Recipient); err != nil {
		return Delivery{Status: StatusFailed, Provider: "smtp"}, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(smtpDialTimeout),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return Delivery{Status: StatusFailed, Provider: "smtp"}, fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return Delivery{Status: StatusFailed, Provider: "smtp"}, fmt.Errorf("smtp send: %w", err)
	}

	return Delivery{Status: StatusSent, Provider: "smtp"}, nil
}

// NoopSender is used when email delivery is disabled by config.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) (Delivery, error) {
	return Delivery{Status: StatusSkipped, Provider: "noop"}, nil
}
