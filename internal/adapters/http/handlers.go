package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseway/meet/internal/app"
	"github.com/caseway/meet/internal/app/invite"
	"github.com/caseway/meet/internal/app/orch"
	"github.com/caseway/meet/internal/domain"
)

const participantHeader = "X-Participant-ID"

type SessionHandlers struct {
	Orch       *orch.Orchestrator
	Dispatcher *invite.Dispatcher
	BaseURL    string
}

type createSessionRequest struct {
	Title string `json:"title"`
	Name  string `json:"name" binding:"required"`
}

func (h *SessionHandlers) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}
	sess, owner, err := h.Orch.Registry.Create(req.Title, req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session":   sess,
		"owner":     owner,
		"join_link": sess.JoinLink(h.BaseURL),
	})
}

func (h *SessionHandlers) GetSession(c *gin.Context) {
	id := domain.SessionID(c.Param("id"))
	sess, ok := h.Orch.Registry.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such meeting"})
		return
	}
	participants, err := h.Orch.Registry.Participants(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such meeting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":      sess,
		"participants": participants,
		"count":        len(participants),
	})
}

type joinSessionRequest struct {
	Name string `json:"name" binding:"required"`
}

// JoinSession keeps "meeting is over" and "bad link" distinguishable so the
// join page can show the right message.
func (h *SessionHandlers) JoinSession(c *gin.Context) {
	id := domain.SessionID(c.Param("id"))
	var req joinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid name"})
		return
	}
	p, err := h.Orch.Registry.Join(id, req.Name)
	switch {
	case errors.Is(err, app.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no such meeting"})
		return
	case errors.Is(err, app.ErrEnded):
		c.JSON(http.StatusGone, gin.H{"error": "meeting has ended"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, _ := h.Orch.Registry.Get(id)
	c.JSON(http.StatusOK, gin.H{
		"participant": p,
		"session":     sess,
	})
}

type leaveSessionRequest struct {
	Participant string `json:"participant" binding:"required"`
}

func (h *SessionHandlers) LeaveSession(c *gin.Context) {
	id := domain.SessionID(c.Param("id"))
	var req leaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing participant"})
		return
	}
	err := h.Orch.Leave(id, domain.ParticipantID(req.Participant))
	switch {
	case errors.Is(err, app.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no such meeting"})
	case errors.Is(err, app.ErrEnded):
		c.JSON(http.StatusGone, gin.H{"error": "meeting has ended"})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h *SessionHandlers) EndSession(c *gin.Context) {
	id := domain.SessionID(c.Param("id"))
	requester := domain.ParticipantID(c.GetHeader(participantHeader))
	if requester == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + participantHeader + " header"})
		return
	}
	err := h.Orch.EndSession(id, requester)
	switch {
	case errors.Is(err, app.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no such meeting"})
	case errors.Is(err, app.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner may end the meeting"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

type sendInvitationsRequest struct {
	Emails  []string `json:"emails" binding:"required"`
	Message string   `json:"message"`
}

func (h *SessionHandlers) SendInvitations(c *gin.Context) {
	id := domain.SessionID(c.Param("id"))
	requester := domain.ParticipantID(c.GetHeader(participantHeader))
	if requester == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + participantHeader + " header"})
		return
	}
	var req sendInvitationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing emails"})
		return
	}
	res, err := h.Dispatcher.Send(c.Request.Context(), domain.InviteRequest{
		Session:   id,
		Addresses: req.Emails,
		Message:   req.Message,
	}, requester)
	switch {
	case errors.Is(err, app.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no such meeting"})
	case errors.Is(err, app.ErrEnded):
		c.JSON(http.StatusGone, gin.H{"error": "meeting has ended"})
	case errors.Is(err, app.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to invite"})
	case errors.Is(err, app.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no addresses given"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, res)
	}
}
