package alert

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sink receives email delivery counters. Satisfied by the StatsD client.
type Sink interface {
	Increment(bucket string)
}

// Mailer is the alert channel: critical and fatal conditions are
// pushed to operators over SMTP. Delivery failures are logged and
// counted but never propagate - an alert that cannot be sent must not
// take the service down with it.
type Mailer struct {
	host       string
	port       string
	username   string
	password   string
	from       string
	recipients []string
	enabled    bool
	sink       Sink
	logger     *slog.Logger
}

// NewMailer creates an SMTP alert channel. When disabled (local
// development, tests) Notify logs the alert instead of sending it.
func NewMailer(host, port, username, password, from string, recipients []string, enabled bool, sink Sink, logger *slog.Logger) *Mailer {
	return &Mailer{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		from:       from,
		recipients: recipients,
		enabled:    enabled,
		sink:       sink,
		logger:     logger,
	}
}

// Notify sends an alert email with the given subject and body.
func (m *Mailer) Notify(subject, body string) error {
	if !m.enabled {
		m.logger.Warn("alert email suppressed (mailer disabled)",
			"subject", subject,
			"body", body,
		)
		return nil
	}

	m.sink.Increment("RedirectServer.Email.Sent")

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.from,
		strings.Join(m.recipients, ", "),
		subject,
		body,
	)

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, m.recipients, []byte(msg)); err != nil {
		m.sink.Increment("RedirectServer.Email.Failed")
		m.logger.Error("failed to send alert email", "subject", subject, "error", err)
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}
