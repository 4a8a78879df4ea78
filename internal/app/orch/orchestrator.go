package orch

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caseway/meet/internal/app"
	"github.com/caseway/meet/internal/core"
	"github.com/caseway/meet/internal/domain"
)

const defaultCloseGrace = 2 * time.Second

// Orchestrator ties the registry and the hub together: it authorizes
// channels, routes envelopes, and keeps the roster honest when transports
// die.
type Orchestrator struct {
	Registry *app.Registry
	Hub      *app.Hub
	Policy   app.Policy

	// CloseGrace is how long queued frames (the bye broadcast, mostly) get
	// to drain before an ended session's channels are force-closed.
	CloseGrace time.Duration
}

// Connect authorizes and attaches a standing signaling channel, then tells
// the rest of the session who arrived.
func (o *Orchestrator) Connect(sid domain.SessionID, pid domain.ParticipantID, conn core.SignalConnection) error {
	sess, ok := o.Registry.Get(sid)
	if !ok || sess.Status == domain.SessionEnded {
		return app.ErrUnauthorized
	}
	p, err := o.Registry.SetConnState(sid, pid, domain.ConnConnected)
	if err != nil {
		return app.ErrUnauthorized
	}
	o.Hub.Attach(sid, pid, conn)
	o.notify(sid, pid, core.KindParticipantJoined, p)
	log.Info().Str("module", "app.orch").Str("session", string(sid)).Str("participant", string(pid)).Msg("channel connected")
	return nil
}

// Disconnect runs the teardown path: detach, mark, leave, announce. It is
// safe to call from a stale pump; only the owning channel wins.
func (o *Orchestrator) Disconnect(sid domain.SessionID, pid domain.ParticipantID, conn core.SignalConnection) {
	if !o.Hub.Detach(sid, pid, conn) {
		return
	}
	_, _ = o.Registry.SetConnState(sid, pid, domain.ConnDisconnected)
	p, known := o.Registry.Participant(sid, pid)
	if err := o.Registry.Leave(sid, pid); err != nil {
		// Session gone or ended under us; nothing left to announce.
		log.Debug().Str("module", "app.orch").Str("session", string(sid)).Str("participant", string(pid)).Err(err).Msg("disconnect on dead session")
		return
	}
	if known {
		o.notify(sid, pid, core.KindParticipantLeft, p)
	}
	log.Info().Str("module", "app.orch").Str("session", string(sid)).Str("participant", string(pid)).Msg("channel disconnected")
}

// Leave removes a participant on explicit request. A live channel is closed
// first; its disconnect path then does the bookkeeping.
func (o *Orchestrator) Leave(sid domain.SessionID, pid domain.ParticipantID) error {
	if conn, ok := o.Hub.Get(sid, pid); ok {
		conn.Close()
		return nil
	}
	p, known := o.Registry.Participant(sid, pid)
	if err := o.Registry.Leave(sid, pid); err != nil {
		return err
	}
	if known {
		o.notify(sid, pid, core.KindParticipantLeft, p)
	}
	return nil
}

// Route relays one envelope. The sender must hold a live channel in an open
// session; the payload is never inspected.
func (o *Orchestrator) Route(sid domain.SessionID, from domain.ParticipantID, env core.Envelope) error {
	if !core.Routed(env.Kind) {
		return app.ErrValidation
	}
	if !o.Hub.Connected(sid, from) {
		return app.ErrUnauthorized
	}
	sess, ok := o.Registry.Get(sid)
	if !ok || sess.Status == domain.SessionEnded {
		return app.ErrUnauthorized
	}

	env.From = from
	f, err := env.Encode()
	if err != nil {
		return err
	}

	if env.To != "" {
		err := o.Hub.SendTo(sid, env.To, f)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, app.ErrRecipientNotFound):
			return err
		default:
			// Queue overflow or a channel mid-close; the policy decides,
			// the sender is not told (at-most-once delivery).
			o.applyBackpressure(sid, core.PublishResult{Dropped: []domain.ParticipantID{env.To}})
			return nil
		}
	}

	res := o.Hub.Broadcast(sid, from, f)
	o.applyBackpressure(sid, res)
	return nil
}

// EndSession ends the session and fans out a bye to everyone still
// connected. Channels are force-closed after a short drain grace.
func (o *Orchestrator) EndSession(sid domain.SessionID, requester domain.ParticipantID) error {
	if err := o.Registry.End(sid, requester); err != nil {
		return err
	}
	env := core.Envelope{Kind: core.KindBye, From: requester}
	f, err := env.Encode()
	if err != nil {
		return err
	}
	res := o.Hub.Broadcast(sid, requester, f)
	log.Info().Str("module", "app.orch").Str("session", string(sid)).Int("notified", res.SentTo).Msg("bye broadcast")

	grace := o.CloseGrace
	if grace <= 0 {
		grace = defaultCloseGrace
	}
	time.AfterFunc(grace, func() { o.Hub.CloseSession(sid) })
	return nil
}

// SetMediaState flips the mic/camera flags and announces the change.
func (o *Orchestrator) SetMediaState(sid domain.SessionID, pid domain.ParticipantID, micOn, cameraOn bool) error {
	p, err := o.Registry.SetMediaState(sid, pid, micOn, cameraOn)
	if err != nil {
		return err
	}
	o.notify(sid, pid, core.KindParticipantUpdated, p)
	return nil
}

func (o *Orchestrator) notify(sid domain.SessionID, from domain.ParticipantID, kind string, p domain.Participant) {
	payload, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("notify marshal")
		return
	}
	f, err := core.Envelope{Kind: kind, From: from, Payload: payload}.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("notify encode")
		return
	}
	res := o.Hub.Broadcast(sid, from, f)
	o.applyBackpressure(sid, res)
}

func (o *Orchestrator) applyBackpressure(sid domain.SessionID, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, pid := range res.Dropped {
		switch o.Policy.OnBackPressure(sid, pid) {
		case app.KickParticipant:
			log.Warn().Str("module", "app.orch").Str("session", string(sid)).Str("participant", string(pid)).Msg("kicking slow consumer")
			if conn, ok := o.Hub.Get(sid, pid); ok {
				conn.Close()
			}
		case app.MarkSlow, app.DropFrame, app.NoAction:
		}
	}
}
