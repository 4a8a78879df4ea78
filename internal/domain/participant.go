package domain

import (
	"errors"
	"time"
)

const MaxDisplayNameLen = 36

var (
	ErrNameTooLong = errors.New("display name too long")
	ErrNameEmpty   = errors.New("display name empty")
)

type (
	ParticipantID string
	ConnState     string
)

const (
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
	ConnDisconnected ConnState = "disconnected"
)

// Participant represents one endpoint inside a session.
// No transport or lifecycle logic here.
type Participant struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"display_name"`
	JoinedAt    time.Time     `json:"joined_at"`
	MicOn       bool          `json:"mic_on"`
	CameraOn    bool          `json:"camera_on"`
	State       ConnState     `json:"state"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(id ParticipantID, displayName string) (*Participant, error) {
	if len(displayName) == 0 {
		return nil, ErrNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrNameTooLong
	}
	return &Participant{
		ID:          id,
		DisplayName: displayName,
		JoinedAt:    time.Now().UTC(),
		MicOn:       true,
		CameraOn:    true,
		State:       ConnConnecting,
	}, nil
}
