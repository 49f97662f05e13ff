package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers messages directly over SMTP. It doubles as the
// synchronous Dispatcher fallback and as the delivery transport used by the
// mail worker.
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewSMTPSender(host, port, user, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
	}
}

// Dispatch sends the message inline, blocking until SMTP accepts it.
func (s *SMTPSender) Dispatch(ctx context.Context, msg Message) error {
	return s.Send(ctx, msg)
}

// Send delivers the message to all recipients.
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	auth := smtp.PlainAuth("", s.user, s.password, s.host)

	raw := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.from, strings.Join(msg.To, ", "), msg.Subject, msg.HTMLBody,
	))

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.from, msg.To, raw); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}

	return nil
}
