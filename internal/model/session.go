package model

import "time"

// Session is the durable server-side session record. The ID is opaque to
// clients; username and role are denormalized copies taken at login time.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	Role      Role
	CreatedAt time.Time
	ExpiresAt time.Time
	UserAgent string
}

// Expired reports whether the session's TTL has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Remaining returns the session lifetime left at now. Negative once expired.
func (s *Session) Remaining(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Principal returns the authenticated identity carried by the session.
func (s *Session) Principal() Principal {
	return Principal{ID: s.UserID, Username: s.Username, Role: s.Role}
}

// Principal is the request-scoped authenticated identity. It is built once
// by the access-control middleware and read-only afterwards.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
