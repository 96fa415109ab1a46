package dispatch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"github.com/cenkalti/backoff"
	"gopkg.in/gomail.v2"

	"github.com/pratik-mahalle/alertroute/internal/config"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
)

// Mailer delivers composed mail. *gomail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// NewDialer creates an SMTP dialer from the email configuration
func NewDialer(cfg config.EmailConfig) *gomail.Dialer {
	var d *gomail.Dialer
	if cfg.User == "" {
		d = &gomail.Dialer{Host: cfg.Host, Port: cfg.Port}
	} else {
		d = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	}
	if cfg.NoVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return d
}

// EmailSender delivers to email destinations
type EmailSender struct {
	mailer Mailer
	from   string
}

// NewEmailSender creates an email sender
func NewEmailSender(mailer Mailer, from string) *EmailSender {
	return &EmailSender{mailer: mailer, from: from}
}

// Medium returns the email medium
func (s *EmailSender) Medium() notification.Medium {
	return notification.MediumEmail
}

// Send mails the message to the destination address
func (s *EmailSender) Send(ctx context.Context, d *notification.Destination, msg *notification.Message) error {
	var settings notification.EmailSettings
	if err := json.Unmarshal(d.Settings, &settings); err != nil || settings.EmailAddress == "" {
		return backoff.Permanent(fmt.Errorf("destination %d has no email address", d.ID))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", settings.EmailAddress)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SMSSender delivers to SMS destinations through an email to SMS gateway.
// The gateway reads the phone number from the subject.
type SMSSender struct {
	mailer  Mailer
	from    string
	gateway string
}

// NewSMSSender creates an SMS sender mailing the gateway address
func NewSMSSender(mailer Mailer, from, gateway string) *SMSSender {
	return &SMSSender{mailer: mailer, from: from, gateway: gateway}
}

// Medium returns the SMS medium
func (s *SMSSender) Medium() notification.Medium {
	return notification.MediumSMS
}

// Send mails the message subject to the gateway
func (s *SMSSender) Send(ctx context.Context, d *notification.Destination, msg *notification.Message) error {
	var settings notification.SMSSettings
	if err := json.Unmarshal(d.Settings, &settings); err != nil || settings.PhoneNumber == "" {
		return backoff.Permanent(fmt.Errorf("destination %d has no phone number", d.ID))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.gateway)
	m.SetHeader("Subject", "sms "+settings.PhoneNumber)
	m.SetBody("text/plain", msg.Subject)

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	return nil
}
