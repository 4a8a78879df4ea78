// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const (
	MaxTitleLen  = 80
	DefaultTitle = "Video Meeting"
	JoinLinkPath = "/meeting/"
)

var (
	ErrTitleTooLong = errors.New("title too long")
)

type (
	SessionID     string
	SessionStatus string
)

const (
	SessionOpen  SessionStatus = "open"
	SessionEnded SessionStatus = "ended"
)

type Session struct {
	ID        SessionID     `json:"id"`
	Title     string        `json:"title"`
	Owner     ParticipantID `json:"owner"`
	CreatedAt time.Time     `json:"created_at"`
	Status    SessionStatus `json:"status"`
}

// NewSession validates the title and fills in the immutable fields.
// The owner participant id is assigned by the registry.
func NewSession(id SessionID, title string, owner ParticipantID) (*Session, error) {
	if title == "" {
		title = DefaultTitle
	}
	if len(title) > MaxTitleLen {
		return nil, ErrTitleTooLong
	}
	return &Session{
		ID:        id,
		Title:     title,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
		Status:    SessionOpen,
	}, nil
}

// JoinLink builds the canonical join URL clients parse the session id from.
func (s *Session) JoinLink(baseURL string) string {
	return baseURL + JoinLinkPath + string(s.ID)
}
