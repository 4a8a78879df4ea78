package app

import "errors"

var (
	// ErrNotFound means the session id is unknown to the registry.
	ErrNotFound = errors.New("session not found")
	// ErrEnded means the session exists but is in its terminal state.
	ErrEnded = errors.New("session ended")
	// ErrForbidden means the caller lacks privilege (e.g. non-owner end).
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized means a signaling action from someone who is not a
	// current participant of that session.
	ErrUnauthorized = errors.New("not a participant of this session")
	// ErrRecipientNotFound means a targeted send to a participant without a
	// live channel.
	ErrRecipientNotFound = errors.New("recipient not connected")
	// ErrBackpressure means a bounded send queue rejected a frame.
	ErrBackpressure = errors.New("backpressure")
	// ErrValidation covers malformed input (empty address list and friends).
	ErrValidation = errors.New("validation failed")
)
