package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailSender delivers alerts over SMTP with plain AUTH.
type EmailSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

func NewEmailSender(host string, port int, username, password, from string, to []string) *EmailSender {
	return &EmailSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
	}
}

// Send mails the message to every configured recipient. The context is
// checked before dialing; net/smtp itself does not take one.
func (e *EmailSender) Send(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if len(e.to) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", title)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(message)
	b.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}
	if err := smtp.SendMail(addr, auth, e.from, e.to, []byte(b.String())); err != nil {
		return fmt.Errorf("email: send mail: %w", err)
	}
	return nil
}

func (e *EmailSender) Name() string {
	return "email"
}
