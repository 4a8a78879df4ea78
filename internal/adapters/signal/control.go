package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/caseway/meet/internal/core"
	"github.com/caseway/meet/internal/domain"
)

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: core.KindPong,
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleMediaState(
	sid domain.SessionID,
	pid domain.ParticipantID,
	conn *WsSignalConn,
	payload json.RawMessage,
) {
	var p struct {
		MicOn    bool `json:"mic_on"`
		CameraOn bool `json:"camera_on"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad media-state payload")
		ctl.sendJSON(conn, map[string]any{"type": core.KindError, "error": "bad_payload"})
		return
	}
	if err := ctl.Orch.SetMediaState(sid, pid, p.MicOn, p.CameraOn); err != nil {
		ctl.sendJSON(conn, map[string]any{"type": core.KindError, "error": err.Error()})
	}
}

func (ctl *SignalWSController) handleRoster(sid domain.SessionID, conn *WsSignalConn) {
	participants, err := ctl.Orch.Registry.Participants(sid)
	if err != nil {
		ctl.sendJSON(conn, map[string]any{"type": core.KindError, "error": err.Error()})
		return
	}
	resp := struct {
		Type         string               `json:"type"`
		Participants []domain.Participant `json:"participants"`
		Count        int                  `json:"count"`
	}{
		Type:         core.KindRoster,
		Participants: participants,
		Count:        len(participants),
	}
	ctl.sendJSON(conn, resp)
}
