package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caseway/meet/internal/domain"
)

func TestRegistry_Create_OwnerIsFirstParticipant(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)

	// When a host creates a session
	sess, owner, err := r.Create("Client Call", "Alice")
	req.NoError(err)

	// Then the session is open and owned by its first participant
	req.Equal(domain.SessionOpen, sess.Status)
	req.Equal(owner.ID, sess.Owner)
	req.Equal(domain.ConnConnecting, owner.State)
	req.True(owner.MicOn)
	req.True(owner.CameraOn)

	participants, err := r.Participants(sess.ID)
	req.NoError(err)
	req.Len(participants, 1)
	req.Equal(owner.ID, participants[0].ID)
}

func TestRegistry_Create_EmptyTitleGetsDefault(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)

	sess, _, err := r.Create("", "Alice")
	req.NoError(err)
	req.Equal(domain.DefaultTitle, sess.Title)
}

func TestRegistry_Join_UnknownSession(t *testing.T) {
	r := NewRegistry(30*time.Minute, 0)
	_, err := r.Join("no-such-id", "Bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Join_EndedSession(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)
	sess, owner, err := r.Create("Standup", "Alice")
	req.NoError(err)

	req.NoError(r.End(sess.ID, owner.ID))

	// A late join is told the meeting is over, not that the link is bad
	_, err = r.Join(sess.ID, "Bob")
	req.ErrorIs(err, ErrEnded)

	// And a racing leave resolves the same way
	req.ErrorIs(r.Leave(sess.ID, owner.ID), ErrEnded)
}

func TestRegistry_Join_KeepsJoinOrder(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)
	sess, owner, err := r.Create("Standup", "Alice")
	req.NoError(err)

	bob, err := r.Join(sess.ID, "Bob")
	req.NoError(err)
	carol, err := r.Join(sess.ID, "Carol")
	req.NoError(err)

	participants, err := r.Participants(sess.ID)
	req.NoError(err)
	req.Len(participants, 3)
	req.Equal(owner.ID, participants[0].ID)
	req.Equal(bob.ID, participants[1].ID)
	req.Equal(carol.ID, participants[2].ID)
}

func TestRegistry_Leave_Idempotent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)
	sess, _, err := r.Create("Standup", "Alice")
	req.NoError(err)
	bob, err := r.Join(sess.ID, "Bob")
	req.NoError(err)

	req.NoError(r.Leave(sess.ID, bob.ID))
	req.NoError(r.Leave(sess.ID, bob.ID))
	req.NoError(r.Leave(sess.ID, "never-joined"))

	// The owner is still there; leaving the roster empty does not end the session
	req.NoError(r.Leave(sess.ID, sess.Owner))
	got, ok := r.Get(sess.ID)
	req.True(ok)
	req.Equal(domain.SessionOpen, got.Status)
}

func TestRegistry_End_OnlyOwner(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)
	sess, owner, err := r.Create("Standup", "Alice")
	req.NoError(err)
	bob, err := r.Join(sess.ID, "Bob")
	req.NoError(err)

	req.ErrorIs(r.End(sess.ID, bob.ID), ErrForbidden)
	req.NoError(r.End(sess.ID, owner.ID))
	// Ending twice is a harmless repeat
	req.NoError(r.End(sess.ID, owner.ID))
	req.ErrorIs(r.End("no-such-id", owner.ID), ErrNotFound)
}

func TestRegistry_ConcurrentJoins_UniqueParticipantIDs(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)
	sess, owner, err := r.Create("Standup", "Alice")
	req.NoError(err)

	const joiners = 64
	ids := make(chan domain.ParticipantID, joiners)
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := r.Join(sess.ID, "Guest")
			if err == nil {
				ids <- p.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[domain.ParticipantID]struct{}{owner.ID: {}}
	for id := range ids {
		_, dup := seen[id]
		req.False(dup, "duplicate participant id %s", id)
		seen[id] = struct{}{}
	}
	req.Len(seen, joiners+1)

	participants, err := r.Participants(sess.ID)
	req.NoError(err)
	req.Len(participants, joiners+1)
}

func TestRegistry_SetMediaState(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)
	sess, owner, err := r.Create("Standup", "Alice")
	req.NoError(err)

	p, err := r.SetMediaState(sess.ID, owner.ID, false, true)
	req.NoError(err)
	req.False(p.MicOn)
	req.True(p.CameraOn)

	_, err = r.SetMediaState(sess.ID, "ghost", true, true)
	req.ErrorIs(err, ErrUnauthorized)
}

func TestRegistry_SetConnState(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, 0)
	sess, owner, err := r.Create("Standup", "Alice")
	req.NoError(err)

	p, err := r.SetConnState(sess.ID, owner.ID, domain.ConnConnected)
	req.NoError(err)
	req.Equal(domain.ConnConnected, p.State)

	got, ok := r.Participant(sess.ID, owner.ID)
	req.True(ok)
	req.Equal(domain.ConnConnected, got.State)
}

func TestRegistry_SweepIdle_EndsEmptySessions(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(10*time.Millisecond, 0)
	sess, owner, err := r.Create("Standup", "Alice")
	req.NoError(err)

	// Owner joins then immediately leaves: zero remaining participants
	req.NoError(r.Leave(sess.ID, owner.ID))

	// Before the idle timeout nothing happens
	req.Empty(r.SweepIdle(time.Now()))

	ended := r.SweepIdle(time.Now().Add(time.Second))
	req.Equal([]domain.SessionID{sess.ID}, ended)

	got, ok := r.Get(sess.ID)
	req.True(ok)
	req.Equal(domain.SessionEnded, got.Status)

	_, err = r.Join(sess.ID, "Bob")
	req.ErrorIs(err, ErrEnded)
}

func TestRegistry_SweepIdle_SkipsOccupiedSessions(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(10*time.Millisecond, 0)
	sess, _, err := r.Create("Standup", "Alice")
	req.NoError(err)

	req.Empty(r.SweepIdle(time.Now().Add(time.Hour)))
	got, _ := r.Get(sess.ID)
	req.Equal(domain.SessionOpen, got.Status)
}

func TestRegistry_SweepIdle_EvictsEndedTombstones(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(30*time.Minute, time.Minute)
	sess, owner, err := r.Create("Standup", "Alice")
	req.NoError(err)
	req.NoError(r.End(sess.ID, owner.ID))

	// Inside retention the tombstone answers Ended
	r.SweepIdle(time.Now())
	_, err = r.Join(sess.ID, "Bob")
	req.ErrorIs(err, ErrEnded)

	// Past retention the record is gone entirely
	r.SweepIdle(time.Now().Add(time.Hour))
	_, ok := r.Get(sess.ID)
	req.False(ok)
}

func TestSessionIDs_Unique(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical sampling is slow")
	}
	seen := make(map[domain.SessionID]struct{}, 1_000_000)
	for i := 0; i < 1_000_000; i++ {
		id := newSessionID()
		if _, dup := seen[id]; dup {
			t.Fatalf("session id collision after %d ids: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}
