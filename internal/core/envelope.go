package core

import (
	"encoding/json"

	"github.com/caseway/meet/internal/domain"
)

// Envelope kinds. Routed kinds carry opaque negotiation payloads between
// participants; the rest are server-originated notifications or control
// messages handled locally.
const (
	KindOffer     = "offer"
	KindAnswer    = "answer"
	KindCandidate = "candidate"
	KindBye       = "bye"

	KindParticipantJoined  = "participant-joined"
	KindParticipantLeft    = "participant-left"
	KindParticipantUpdated = "participant-updated"
	KindRoster             = "roster"
	KindMediaState         = "media-state"
	KindPing               = "ping"
	KindPong               = "pong"
	KindError              = "error"
)

// Envelope is the wire format of a signaling message. From is always filled
// in by the server, never trusted from the client. An empty To means
// broadcast to every other participant of the session.
type Envelope struct {
	Kind    string               `json:"type"`
	From    domain.ParticipantID `json:"from,omitempty"`
	To      domain.ParticipantID `json:"to,omitempty"`
	Payload json.RawMessage      `json:"payload,omitempty"`
}

func (e Envelope) Encode() (Frame, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}

// Routed reports whether a kind is relayed between participants.
func Routed(kind string) bool {
	switch kind {
	case KindOffer, KindAnswer, KindCandidate, KindBye:
		return true
	}
	return false
}
