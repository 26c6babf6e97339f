// internal/session/session.go
package session

import "time"

// Session is the per-user conversation state kept in Redis.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Role         string    `json:"role"`
	AuthToken    string    `json:"authToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsExpired reports whether the session passed its expiry.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
