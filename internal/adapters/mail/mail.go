// Package mail provides invite.Sender implementations.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog/log"
)

type Message struct {
	Subject string
	From    string
	To      []string
	Body    string
}

// Content renders the SMTP wire body: headers, blank line, body.
func (m Message) Content() []byte {
	return []byte(fmt.Sprintf("Subject: %s\n\n%s", m.Subject, m.Body))
}

// SMTPSender delivers through a plain-auth SMTP relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(addr, username, password, from string) *SMTPSender {
	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}
	return &SMTPSender{
		addr: addr,
		from: from,
		auth: smtp.PlainAuth("", username, password, host),
	}
}

func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	m := Message{Subject: subject, From: s.from, To: []string{to}, Body: body}
	return smtp.SendMail(s.addr, s.auth, s.from, m.To, m.Content())
}

// LogSender stands in for a real relay in dev mode: it records the attempt
// and reports success.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, _ string) error {
	log.Info().Str("module", "mail").Str("to", to).Str("subject", subject).Msg("smtp disabled, invitation logged only")
	return nil
}
