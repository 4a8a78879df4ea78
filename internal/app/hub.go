package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/caseway/meet/internal/core"
	"github.com/caseway/meet/internal/domain"
)

// Hub is the relay's connection table. It holds no roster state of its own;
// membership truth lives in the Registry. It never closes a connection
// except on session teardown or reconnect replacement.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.SessionID]map[domain.ParticipantID]core.SignalConnection
}

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.SessionID]map[domain.ParticipantID]core.SignalConnection)}
}

// Attach registers a standing channel. A reconnect replaces and closes the
// stale one.
func (h *Hub) Attach(sid domain.SessionID, pid domain.ParticipantID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.conns[sid]
	if !ok {
		m = make(map[domain.ParticipantID]core.SignalConnection)
		h.conns[sid] = m
	}
	if old, ok := m[pid]; ok {
		old.Close()
		log.Info().Str("module", "app.hub").Str("session", string(sid)).Str("participant", string(pid)).Msg("replaced stale channel")
	}
	m[pid] = conn
}

// Detach removes the channel. When conn is non-nil it only removes that
// exact channel, so a stale pump exiting after a reconnect cannot tear down
// the replacement.
func (h *Hub) Detach(sid domain.SessionID, pid domain.ParticipantID, conn core.SignalConnection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.conns[sid]
	if !ok {
		return false
	}
	cur, ok := m[pid]
	if !ok {
		return false
	}
	if conn != nil && cur != conn {
		return false
	}
	delete(m, pid)
	if len(m) == 0 {
		delete(h.conns, sid)
	}
	return true
}

// Get returns the live channel of a participant, if any.
func (h *Hub) Get(sid domain.SessionID, pid domain.ParticipantID) (core.SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[sid][pid]
	return conn, ok
}

// Connected reports whether a participant has a live channel.
func (h *Hub) Connected(sid domain.SessionID, pid domain.ParticipantID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[sid][pid]
	return ok
}

// SendTo delivers one frame to one participant. FIFO per recipient holds
// because every channel has exactly one consumer pump.
func (h *Hub) SendTo(sid domain.SessionID, to domain.ParticipantID, f core.Frame) error {
	h.mu.RLock()
	conn, ok := h.conns[sid][to]
	h.mu.RUnlock()
	if !ok {
		return ErrRecipientNotFound
	}
	return conn.TrySend(f)
}

// Broadcast delivers to every other connected participant of the session,
// best-effort. Overflowed queues are reported, not retried.
func (h *Hub) Broadcast(sid domain.SessionID, from domain.ParticipantID, f core.Frame) core.PublishResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	res := core.PublishResult{}
	for pid, conn := range h.conns[sid] {
		if pid == from {
			continue
		}
		if err := conn.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, pid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "app.hub").Str("session", string(sid)).Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// CloseSession tears down every channel of a session.
func (h *Hub) CloseSession(sid domain.SessionID) {
	h.mu.Lock()
	m := h.conns[sid]
	delete(h.conns, sid)
	h.mu.Unlock()
	for _, conn := range m {
		conn.Close()
	}
}
