package jobs

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPMailer delivers mail through the configured SMTP relay.
type SMTPMailer struct {
	Host string
	Port int
	From string
}

// Send delivers one message.
func (m SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.From, to, subject, body)
	return smtp.SendMail(addr, nil, m.From, []string{to}, []byte(msg))
}

var _ Mailer = SMTPMailer{}
