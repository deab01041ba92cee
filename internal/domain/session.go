package domain

import "time"

// Session is the authenticated context a request runs with: the session id
// that scopes drafts, the remote API bearer token and the remote user.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	User      AuthUser  `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}
