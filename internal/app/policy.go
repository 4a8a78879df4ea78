package app

import "github.com/caseway/meet/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickParticipant
	DropFrame
)

// Policy decides what happens to a participant whose bounded send queue
// overflowed. A stalled consumer must not grow server memory.
type Policy interface {
	OnBackPressure(sid domain.SessionID, pid domain.ParticipantID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.SessionID, domain.ParticipantID) BackpressureAction {
	return KickParticipant
}
