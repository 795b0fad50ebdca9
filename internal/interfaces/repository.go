package interfaces

import (
	"context"
	"time"

	"github.com/tobanev/session-auth-service/internal/model"
)

// UserRepository defines the interface for credential-store operations
type UserRepository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string, role model.Role) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	// RecordFailedLogin increments the attempt counter and, once it reaches
	// threshold, stamps lockUntil in the same write. Returns the new counter.
	RecordFailedLogin(ctx context.Context, userID int64, threshold int, lockUntil time.Time) (int, error)
	// ResetLoginState clears the attempt counter and any lock timestamp.
	ResetLoginState(ctx context.Context, userID int64) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// SessionRepository defines the interface for session-store operations.
// Expired records are invisible to lookups (passive TTL eviction).
type SessionRepository interface {
	// Create persists a session, atomically removing any prior sessions for
	// the same user (single-session policy).
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	ListByUserID(ctx context.Context, userID int64) ([]*model.Session, error)
	Delete(ctx context.Context, id string) error
	// Replace atomically deletes oldID and inserts s. On error neither
	// change is applied and oldID remains valid.
	Replace(ctx context.Context, oldID string, s *model.Session) error
	// UpdatePrincipal refreshes the denormalized user data on a live session.
	UpdatePrincipal(ctx context.Context, id, username string, role model.Role) error
	// DeleteExpired removes sessions past their TTL, returning how many.
	DeleteExpired(ctx context.Context) (int64, error)
}
