package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender sends handoff emails over plain SMTP with optional auth. A
// zero-host sender is disabled and reports itself as such rather than
// erroring, so the summary endpoints keep working without mail config.
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds a sender from config values. Any of user/password may
// be empty for unauthenticated relays.
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		send:     smtp.SendMail,
	}
}

// Enabled reports whether the sender has enough config to attempt delivery.
func (s *SMTPSender) Enabled() bool {
	return s != nil && s.host != "" && s.from != ""
}

// Send delivers a plain-text message to the recipients.
func (s *SMTPSender) Send(to []string, subject, body string) error {
	if !s.Enabled() {
		return fmt.Errorf("mailer: smtp not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", strings.Join(to, ", ")),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := s.send(addr, auth, s.from, to, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: send via %s: %w", addr, err)
	}
	return nil
}
