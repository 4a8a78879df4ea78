package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/caseway/meet/internal/app"
	"github.com/caseway/meet/internal/core"
	"github.com/caseway/meet/internal/domain"
)

// handleRelay forwards an opaque negotiation envelope. Routing errors that
// matter to the sender come back as error envelopes on the same channel;
// best-effort drops stay silent.
func (ctl *SignalWSController) handleRelay(
	sid domain.SessionID,
	pid domain.ParticipantID,
	conn *WsSignalConn,
	env core.Envelope,
) {
	err := ctl.Orch.Route(sid, pid, env)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrRecipientNotFound):
		ctl.sendJSON(conn, map[string]any{"type": core.KindError, "error": "recipient not found"})
	case errors.Is(err, app.ErrUnauthorized):
		ctl.sendJSON(conn, map[string]any{"type": core.KindError, "error": "unauthorized"})
	default:
		log.Error().Err(err).Str("module", "signal").Str("type", env.Kind).Msg("route failed")
	}
}
