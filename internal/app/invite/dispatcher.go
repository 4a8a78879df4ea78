// Package invite turns an owner's invite request into per-address delivery
// calls against an external mail collaborator.
package invite

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/caseway/meet/internal/app"
	"github.com/caseway/meet/internal/domain"
)

// Sender delivers one message to one address. Implementations live in
// adapters; the dispatcher only knows this interface.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Rejection struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// Result reports per-address outcomes. Partial failure is the expected
// case, never escalated to a wholesale error.
type Result struct {
	Accepted []string    `json:"accepted"`
	Rejected []Rejection `json:"rejected"`
}

type Dispatcher struct {
	Registry *app.Registry
	Mailer   Sender
	BaseURL  string
	// OwnerOnly restricts invites to the session owner; when false any
	// current participant may invite.
	OwnerOnly bool

	validate *validator.Validate
}

func NewDispatcher(reg *app.Registry, mailer Sender, baseURL string, ownerOnly bool) *Dispatcher {
	return &Dispatcher{
		Registry:  reg,
		Mailer:    mailer,
		BaseURL:   baseURL,
		OwnerOnly: ownerOnly,
		validate:  validator.New(),
	}
}

// Send resolves the join link and mails it to each address, collecting
// per-address outcomes. Malformed addresses are rejected individually.
func (d *Dispatcher) Send(ctx context.Context, req domain.InviteRequest, requester domain.ParticipantID) (Result, error) {
	sess, ok := d.Registry.Get(req.Session)
	if !ok {
		return Result{}, app.ErrNotFound
	}
	if sess.Status == domain.SessionEnded {
		return Result{}, app.ErrEnded
	}
	if sess.Owner != requester {
		if d.OwnerOnly {
			return Result{}, app.ErrForbidden
		}
		if _, ok := d.Registry.Participant(req.Session, requester); !ok {
			return Result{}, app.ErrForbidden
		}
	}
	if len(req.Addresses) == 0 {
		return Result{}, app.ErrValidation
	}

	subject := fmt.Sprintf("Invitation: %s", sess.Title)
	body := inviteBody(sess.Title, sess.JoinLink(d.BaseURL), req.Message)

	res := Result{Accepted: []string{}, Rejected: []Rejection{}}
	for _, addr := range req.Addresses {
		if err := d.validate.Var(addr, "required,email"); err != nil {
			res.Rejected = append(res.Rejected, Rejection{Address: addr, Reason: "invalid address"})
			continue
		}
		if err := d.Mailer.Send(ctx, addr, subject, body); err != nil {
			log.Warn().Err(err).Str("module", "invite").Str("session", string(req.Session)).Str("address", addr).Msg("delivery failed")
			res.Rejected = append(res.Rejected, Rejection{Address: addr, Reason: "delivery failed"})
			continue
		}
		res.Accepted = append(res.Accepted, addr)
	}

	log.Info().Str("module", "invite").Str("session", string(req.Session)).Int("accepted", len(res.Accepted)).Int("rejected", len(res.Rejected)).Msg("invitations dispatched")
	return res, nil
}

func inviteBody(title, link, personal string) string {
	body := fmt.Sprintf("You have been invited to join %q.\n\nJoin link: %s\n", title, link)
	if personal != "" {
		body += "\n" + personal + "\n"
	}
	return body
}
