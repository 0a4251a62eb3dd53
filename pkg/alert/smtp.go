package alert

import (
	"errors"

	"gopkg.in/gomail.v2"

	"github.com/ben458-1/URL-Server-Monitor/pkg/config"
	"github.com/ben458-1/URL-Server-Monitor/pkg/logutils"
)

// ErrMailDisabled is returned when alerts are switched off or the SMTP
// relay is not configured. Non-fatal: the evaluator logs it and writes no
// alert record.
var ErrMailDisabled = errors.New("email alerts are disabled")

// SMTPMailer sends plain-text mail through the configured relay. Some
// internal relays accept unauthenticated mail, so auth is optional.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	useAuth  bool
	enabled  bool
}

func NewSMTPMailer() *SMTPMailer {
	cfg := config.GetConfig()
	m := &SMTPMailer{
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		username: cfg.SMTP.User,
		password: cfg.SMTP.Password,
		from:     cfg.SMTP.From,
		useAuth:  cfg.SMTP.UseAuth,
		enabled:  cfg.SMTP.Enabled,
	}
	if m.host == "" {
		logutils.Log.Warn("SMTP server not configured, email alerts will be disabled")
		m.enabled = false
	}
	if m.useAuth && m.username == "" {
		logutils.Log.Warn("SMTP auth enabled but username not configured, email alerts will be disabled")
		m.enabled = false
	}
	return m
}

func (m *SMTPMailer) SendPlainText(recipients []string, subject, body string) error {
	if !m.enabled {
		return ErrMailDisabled
	}
	if len(recipients) == 0 {
		return errors.New("no recipients")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := &gomail.Dialer{Host: m.host, Port: m.port}
	if m.useAuth {
		dialer.Username = m.username
		dialer.Password = m.password
	}
	if err := dialer.DialAndSend(msg); err != nil {
		return err
	}

	logutils.Log.Infof("Alert email sent to %d recipients", len(recipients))
	return nil
}
