package model

import (
	"fmt"
	"time"
)

// Role is the closed set of roles a user can hold. Anything outside this
// set is rejected at the boundary rather than carried as a raw string.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	// RoleModerator is reserved; no route grants it yet.
	RoleModerator Role = "moderator"
)

// ParseRole validates a role string against the enumerated set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleModerator:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// CoerceRole maps a signup role request onto an assignable role. Only
// user and admin may be self-assigned; everything else becomes user.
func CoerceRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s)
	}
	return RoleUser
}

type User struct {
	ID            int64
	Username      string
	Email         string
	PasswordHash  string
	Role          Role
	LoginAttempts int
	LockUntil     *time.Time
	Created       time.Time
}

// Locked reports whether the account's lockout window is still open.
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}
