package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/tobanev/session-auth-service/internal/database"
	"github.com/tobanev/session-auth-service/internal/interfaces"
	"github.com/tobanev/session-auth-service/internal/model"
)

// SessionRepositoryImpl implements the SessionRepository interface on
// Postgres. Expired rows are filtered out of every lookup, so eviction is
// passive; the sweeper only reclaims storage.
type SessionRepositoryImpl struct {
	db *database.DB
}

// Verify that SessionRepositoryImpl implements SessionRepository interface
var _ interfaces.SessionRepository = (*SessionRepositoryImpl)(nil)

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(db *database.DB) interfaces.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

const sessionColumns = `session_id, user_id, username, role, created_at, expires_at, user_agent`

// Create inserts a session and deletes any prior sessions for the same user
// in one transaction, so two concurrent logins still converge on exactly one
// live session.
func (r *SessionRepositoryImpl) Create(ctx context.Context, s *model.Session) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1`, s.UserID); err != nil {
		return err
	}
	if err := insertSession(ctx, tx, s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a live session; expired rows behave as absent
func (r *SessionRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE session_id = $1 AND expires_at > now()`,
		id).Scan(&s.ID, &s.UserID, &s.Username, &s.Role, &s.CreatedAt, &s.ExpiresAt, &s.UserAgent)

	if err == pgx.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// ListByUserID returns all live sessions bound to a user, newest first
func (r *SessionRepositoryImpl) ListByUserID(ctx context.Context, userID int64) ([]*model.Session, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE user_id = $1 AND expires_at > now()
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Username, &s.Role, &s.CreatedAt, &s.ExpiresAt, &s.UserAgent); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// Delete destroys a live session record; an expired one counts as absent
func (r *SessionRepositoryImpl) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE session_id = $1 AND expires_at > now()`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Replace deletes oldID and inserts s in one transaction. If anything fails
// the transaction rolls back and oldID remains valid, which is what the
// regenerate-on-renew flow relies on.
func (r *SessionRepositoryImpl) Replace(ctx context.Context, oldID string, s *model.Session) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`DELETE FROM sessions WHERE session_id = $1 AND expires_at > now()`, oldID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	if err := insertSession(ctx, tx, s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdatePrincipal refreshes the denormalized user fields on a live session
func (r *SessionRepositoryImpl) UpdatePrincipal(ctx context.Context, id, username string, role model.Role) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions
		 SET username = $2, role = $3
		 WHERE session_id = $1 AND expires_at > now()`,
		id, username, string(role))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired reclaims rows past their TTL
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func insertSession(ctx context.Context, tx pgx.Tx, s *model.Session) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO sessions (session_id, user_id, username, role, created_at, expires_at, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.Username, string(s.Role), s.CreatedAt, s.ExpiresAt, s.UserAgent)
	return err
}
