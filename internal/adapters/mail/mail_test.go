package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage_Content(t *testing.T) {
	req := require.New(t)
	m := Message{
		Subject: "Invitation: Standup",
		From:    "no-reply@meet.example.com",
		To:      []string{"good@x.com"},
		Body:    "Join link: https://meet.example.com/meeting/abc",
	}
	content := string(m.Content())
	req.Contains(content, "Subject: Invitation: Standup\n")
	req.Contains(content, "\n\nJoin link:")
}

func TestNewSMTPSender_SplitsHostFromPort(t *testing.T) {
	req := require.New(t)
	s := NewSMTPSender("smtp.example.com:587", "user", "pass", "no-reply@example.com")
	req.Equal("smtp.example.com:587", s.addr)
	req.Equal("no-reply@example.com", s.from)
}

func TestLogSender_AlwaysSucceeds(t *testing.T) {
	require.NoError(t, LogSender{}.Send(context.Background(), "good@x.com", "subject", "body"))
}
