package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/caseway/meet/internal/app"
	"github.com/caseway/meet/internal/app/orch"
	"github.com/caseway/meet/internal/config"
	"github.com/caseway/meet/internal/core"
	"github.com/caseway/meet/internal/domain"
)

type SignalWSController struct {
	Orch *orch.Orchestrator
	Cfg  *config.Config
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{Orch: o, Cfg: cfg}
}

// WsSignalConn implements core.SignalConnection over a websocket with a
// bounded send queue. A full queue rejects the frame; the policy layer
// decides what to do with the slow consumer.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return app.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the connection and starts the pumps. Authorization
// happens before the upgrade so bad joins get a proper status code, and
// again inside Connect to close the race with endSession.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := domain.SessionID(c.Query("session"))
	pid := domain.ParticipantID(c.Query("participant"))
	if sid == "" || pid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session or participant"})
		return
	}

	sess, ok := ctl.Orch.Registry.Get(sid)
	switch {
	case !ok:
		c.JSON(http.StatusNotFound, gin.H{"error": "no such meeting"})
		return
	case sess.Status == domain.SessionEnded:
		c.JSON(http.StatusGone, gin.H{"error": "meeting has ended"})
		return
	}
	if _, ok := ctl.Orch.Registry.Participant(sid, pid); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not a participant of this session"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}
	if err := ctl.Orch.Connect(sid, pid, conn); err != nil {
		// Lost the race with endSession between the check and the upgrade.
		deadline := time.Now().Add(time.Second)
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"), deadline)
		_ = ws.Close()
		return
	}

	log.Info().Str("module", "signal").Str("session", string(sid)).Str("participant", string(pid)).Msg("new WS connection")

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, cancel, sid, pid, conn)
}
