package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/caseway/meet/internal/app"
	"github.com/caseway/meet/internal/app/invite"
	"github.com/caseway/meet/internal/app/orch"
	"github.com/caseway/meet/internal/config"
	"github.com/caseway/meet/internal/domain"
)

type noopSender struct{}

func (noopSender) Send(context.Context, string, string, string) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Mode:       "test",
		StaticPath: t.TempDir(),
		BaseURL:    "https://meet.example.com",
		SendBuffer: 8,
		PingPeriod: time.Second,
	}
	o := &orch.Orchestrator{
		Registry:   app.NewRegistry(30*time.Minute, 0),
		Hub:        app.NewHub(),
		Policy:     app.SimplePolicy{},
		CloseGrace: time.Millisecond,
	}
	disp := invite.NewDispatcher(o.Registry, noopSender{}, cfg.BaseURL, true)
	return SetupRouter(context.Background(), cfg, o, disp)
}

func do(t *testing.T, r http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type createdSession struct {
	Session  domain.Session     `json:"session"`
	Owner    domain.Participant `json:"owner"`
	JoinLink string             `json:"join_link"`
}

func createSession(t *testing.T, r http.Handler) createdSession {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/sessions", gin.H{"title": "Standup", "name": "Alice"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var out createdSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateSession(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t)

	out := createSession(t, r)
	req.NotEmpty(out.Session.ID)
	req.Equal("Standup", out.Session.Title)
	req.Equal(out.Owner.ID, out.Session.Owner)
	req.Equal("Alice", out.Owner.DisplayName)
	req.Equal("https://meet.example.com/meeting/"+string(out.Session.ID), out.JoinLink)

	w := do(t, r, http.MethodPost, "/api/sessions", gin.H{"title": "No name"}, nil)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestGetSession(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t)
	out := createSession(t, r)

	w := do(t, r, http.MethodGet, "/api/sessions/"+string(out.Session.ID), nil, nil)
	req.Equal(http.StatusOK, w.Code)

	var body struct {
		Participants []domain.Participant `json:"participants"`
		Count        int                  `json:"count"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	req.Equal(1, body.Count)
	req.Equal("Alice", body.Participants[0].DisplayName)

	w = do(t, r, http.MethodGet, "/api/sessions/unknown", nil, nil)
	req.Equal(http.StatusNotFound, w.Code)
}

func TestJoinAndLeaveSession(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t)
	out := createSession(t, r)
	path := "/api/sessions/" + string(out.Session.ID)

	w := do(t, r, http.MethodPost, path+"/join", gin.H{"name": "Bob"}, nil)
	req.Equal(http.StatusOK, w.Code)
	var joined struct {
		Participant domain.Participant `json:"participant"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &joined))
	req.Equal("Bob", joined.Participant.DisplayName)

	w = do(t, r, http.MethodPost, path+"/leave", gin.H{"participant": string(joined.Participant.ID)}, nil)
	req.Equal(http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodPost, "/api/sessions/unknown/join", gin.H{"name": "Bob"}, nil)
	req.Equal(http.StatusNotFound, w.Code)
}

func TestEndSession(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t)
	out := createSession(t, r)
	path := "/api/sessions/" + string(out.Session.ID)

	w := do(t, r, http.MethodPost, path+"/join", gin.H{"name": "Bob"}, nil)
	req.Equal(http.StatusOK, w.Code)
	var joined struct {
		Participant domain.Participant `json:"participant"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &joined))

	w = do(t, r, http.MethodDelete, path, nil, nil)
	req.Equal(http.StatusBadRequest, w.Code, "requester header is required")

	w = do(t, r, http.MethodDelete, path, nil, map[string]string{participantHeader: string(joined.Participant.ID)})
	req.Equal(http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodDelete, path, nil, map[string]string{participantHeader: string(out.Owner.ID)})
	req.Equal(http.StatusNoContent, w.Code)

	// The link now reports the meeting as over, not missing
	w = do(t, r, http.MethodPost, path+"/join", gin.H{"name": "Late"}, nil)
	req.Equal(http.StatusGone, w.Code)
}

func TestSendInvitations(t *testing.T) {
	req := require.New(t)
	r := newTestRouter(t)
	out := createSession(t, r)
	path := "/api/sessions/" + string(out.Session.ID) + "/invitations"
	ownerHeader := map[string]string{participantHeader: string(out.Owner.ID)}

	w := do(t, r, http.MethodPost, path, gin.H{"emails": []string{"good@x.com", "nope"}}, ownerHeader)
	req.Equal(http.StatusOK, w.Code)

	var res invite.Result
	req.NoError(json.Unmarshal(w.Body.Bytes(), &res))
	req.Equal([]string{"good@x.com"}, res.Accepted)
	req.Len(res.Rejected, 1)

	w = do(t, r, http.MethodPost, path, gin.H{"emails": []string{"good@x.com"}}, map[string]string{participantHeader: "stranger"})
	req.Equal(http.StatusForbidden, w.Code)

	w = do(t, r, http.MethodPost, path, gin.H{"emails": []string{}}, ownerHeader)
	req.Equal(http.StatusBadRequest, w.Code)
}
