package domain

// InviteRequest is a one-shot request to mail a join link to a set of
// addresses. It is consumed by the dispatcher and never persisted.
type InviteRequest struct {
	Session   SessionID `json:"session"`
	Addresses []string  `json:"addresses"`
	Message   string    `json:"message,omitempty"`
}
