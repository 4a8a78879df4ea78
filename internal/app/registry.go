package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/caseway/meet/internal/domain"
)

// sessionState is the registry's mutable record for one session. Its own
// mutex serializes roster and status changes, so operations on different
// sessions never contend.
type sessionState struct {
	mu           sync.Mutex
	meta         domain.Session
	order        []domain.ParticipantID
	participants map[domain.ParticipantID]*domain.Participant
	emptySince   time.Time
	endedAt      time.Time
}

// Registry is the single source of truth for sessions and membership.
// Ended sessions are kept as tombstones so a late join can be told the
// meeting is over instead of getting a dead link.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionState

	idleTimeout time.Duration
	retention   time.Duration
}

func NewRegistry(idleTimeout, retention time.Duration) *Registry {
	return &Registry{
		sessions:    make(map[domain.SessionID]*sessionState),
		idleTimeout: idleTimeout,
		retention:   retention,
	}
}

// newSessionID returns an unguessable session token. UUIDv4 carries 122
// random bits, so collisions are negligible at any realistic scale.
func newSessionID() domain.SessionID {
	return domain.SessionID(uuid.NewString())
}

func newParticipantID() domain.ParticipantID {
	return domain.ParticipantID(uuid.NewString())
}

func (r *Registry) state(id domain.SessionID) (*sessionState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.sessions[id]
	return st, ok
}

// Create opens a new session with the owner as its first participant.
func (r *Registry) Create(title, ownerName string) (domain.Session, domain.Participant, error) {
	owner, err := domain.NewParticipant(newParticipantID(), ownerName)
	if err != nil {
		return domain.Session{}, domain.Participant{}, err
	}
	sess, err := domain.NewSession(newSessionID(), title, owner.ID)
	if err != nil {
		return domain.Session{}, domain.Participant{}, err
	}

	st := &sessionState{
		meta:         *sess,
		order:        []domain.ParticipantID{owner.ID},
		participants: map[domain.ParticipantID]*domain.Participant{owner.ID: owner},
	}
	r.mu.Lock()
	r.sessions[sess.ID] = st
	r.mu.Unlock()

	log.Info().Str("module", "app.registry").Str("session", string(sess.ID)).Str("owner", string(owner.ID)).Msg("session created")
	return *sess, *owner, nil
}

// Join adds a participant in `connecting` state. The id is unique within the
// session; the session lock keeps concurrent joins from racing.
func (r *Registry) Join(id domain.SessionID, displayName string) (domain.Participant, error) {
	st, ok := r.state(id)
	if !ok {
		return domain.Participant{}, ErrNotFound
	}
	p, err := domain.NewParticipant(newParticipantID(), displayName)
	if err != nil {
		return domain.Participant{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.meta.Status == domain.SessionEnded {
		return domain.Participant{}, ErrEnded
	}
	st.participants[p.ID] = p
	st.order = append(st.order, p.ID)
	st.emptySince = time.Time{}

	log.Info().Str("module", "app.registry").Str("session", string(id)).Str("participant", string(p.ID)).Str("name", displayName).Msg("participant joined")
	return *p, nil
}

// Leave removes the participant if present; an absent participant is a
// no-op. An ended session rejects the call so a leave racing an end
// resolves deterministically.
func (r *Registry) Leave(id domain.SessionID, pid domain.ParticipantID) error {
	st, ok := r.state(id)
	if !ok {
		return ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.meta.Status == domain.SessionEnded {
		return ErrEnded
	}
	if _, ok := st.participants[pid]; !ok {
		return nil
	}
	delete(st.participants, pid)
	for i, cur := range st.order {
		if cur == pid {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	if len(st.participants) == 0 {
		st.emptySince = time.Now()
	}
	log.Info().Str("module", "app.registry").Str("session", string(id)).Str("participant", string(pid)).Msg("participant left")
	return nil
}

// End transitions a session to its terminal state. Only the owner may end;
// ending an already-ended session is an idempotent success.
func (r *Registry) End(id domain.SessionID, requester domain.ParticipantID) error {
	st, ok := r.state(id)
	if !ok {
		return ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.meta.Owner != requester {
		return ErrForbidden
	}
	if st.meta.Status == domain.SessionEnded {
		return nil
	}
	st.meta.Status = domain.SessionEnded
	st.endedAt = time.Now()
	log.Info().Str("module", "app.registry").Str("session", string(id)).Msg("session ended by owner")
	return nil
}

// Get returns a snapshot of the session metadata.
func (r *Registry) Get(id domain.SessionID) (domain.Session, bool) {
	st, ok := r.state(id)
	if !ok {
		return domain.Session{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.meta, true
}

// Participant returns a snapshot of one participant record.
func (r *Registry) Participant(id domain.SessionID, pid domain.ParticipantID) (domain.Participant, bool) {
	st, ok := r.state(id)
	if !ok {
		return domain.Participant{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.participants[pid]
	if !ok {
		return domain.Participant{}, false
	}
	return *p, true
}

// Participants returns the roster in join order.
func (r *Registry) Participants(id domain.SessionID) ([]domain.Participant, error) {
	st, ok := r.state(id)
	if !ok {
		return nil, ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]domain.Participant, 0, len(st.order))
	for _, pid := range st.order {
		if p, ok := st.participants[pid]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// SetConnState records the transport state of a participant's channel.
func (r *Registry) SetConnState(id domain.SessionID, pid domain.ParticipantID, state domain.ConnState) (domain.Participant, error) {
	st, ok := r.state(id)
	if !ok {
		return domain.Participant{}, ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.meta.Status == domain.SessionEnded {
		return domain.Participant{}, ErrEnded
	}
	p, ok := st.participants[pid]
	if !ok {
		return domain.Participant{}, ErrUnauthorized
	}
	p.State = state
	return *p, nil
}

// SetMediaState updates the mic/camera flags.
func (r *Registry) SetMediaState(id domain.SessionID, pid domain.ParticipantID, micOn, cameraOn bool) (domain.Participant, error) {
	st, ok := r.state(id)
	if !ok {
		return domain.Participant{}, ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.meta.Status == domain.SessionEnded {
		return domain.Participant{}, ErrEnded
	}
	p, ok := st.participants[pid]
	if !ok {
		return domain.Participant{}, ErrUnauthorized
	}
	p.MicOn = micOn
	p.CameraOn = cameraOn
	return *p, nil
}

// SweepIdle ends sessions that sat empty past the idle timeout and evicts
// ended tombstones past retention. Returns the ids it just ended.
func (r *Registry) SweepIdle(now time.Time) []domain.SessionID {
	r.mu.RLock()
	snapshot := make(map[domain.SessionID]*sessionState, len(r.sessions))
	for id, st := range r.sessions {
		snapshot[id] = st
	}
	r.mu.RUnlock()

	var ended, evict []domain.SessionID
	for id, st := range snapshot {
		st.mu.Lock()
		switch {
		case st.meta.Status == domain.SessionEnded:
			if r.retention > 0 && !st.endedAt.IsZero() && now.Sub(st.endedAt) > r.retention {
				evict = append(evict, id)
			}
		case len(st.participants) == 0 && !st.emptySince.IsZero() && now.Sub(st.emptySince) > r.idleTimeout:
			st.meta.Status = domain.SessionEnded
			st.endedAt = now
			ended = append(ended, id)
			log.Info().Str("module", "app.registry").Str("session", string(id)).Msg("idle session ended")
		}
		st.mu.Unlock()
	}

	if len(evict) > 0 {
		r.mu.Lock()
		for _, id := range evict {
			delete(r.sessions, id)
		}
		r.mu.Unlock()
		log.Info().Str("module", "app.registry").Int("evicted", len(evict)).Msg("ended sessions evicted")
	}
	return ended
}
