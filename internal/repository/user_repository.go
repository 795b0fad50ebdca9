package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/tobanev/session-auth-service/internal/database"
	"github.com/tobanev/session-auth-service/internal/interfaces"
	"github.com/tobanev/session-auth-service/internal/model"
)

// Common errors that can be returned by the repositories
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateUser   = errors.New("username or email already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// UserRepositoryImpl implements the UserRepository interface on Postgres
type UserRepositoryImpl struct {
	db *database.DB
}

// Verify that UserRepositoryImpl implements UserRepository interface
var _ interfaces.UserRepository = (*UserRepositoryImpl)(nil)

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *database.DB) interfaces.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// CreateUser creates a new user in the database
func (r *UserRepositoryImpl) CreateUser(ctx context.Context, username, email, passwordHash string, role model.Role) (*model.User, error) {
	var user model.User
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, username, email, role, created_at`,
		username, email, passwordHash, string(role)).
		Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Created)

	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by the canonical login identifier
func (r *UserRepositoryImpl) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUser(ctx, `WHERE username = $1`, username)
}

// GetUserByID retrieves a user by primary key
func (r *UserRepositoryImpl) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *UserRepositoryImpl) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var user model.User
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, login_attempts, lock_until, created_at
		 FROM users `+where, arg).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.Role, &user.LoginAttempts, &user.LockUntil, &user.Created)

	if err == pgx.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// RecordFailedLogin increments the failed attempt counter and stamps the
// lock timestamp in the same statement once the threshold is reached, so a
// crash between check and response cannot leave a phantom unlock.
func (r *UserRepositoryImpl) RecordFailedLogin(ctx context.Context, userID int64, threshold int, lockUntil time.Time) (int, error) {
	var attempts int
	err := r.db.Pool.QueryRow(ctx,
		`UPDATE users
		 SET login_attempts = login_attempts + 1,
		     lock_until = CASE WHEN login_attempts + 1 >= $2 THEN $3 ELSE lock_until END
		 WHERE id = $1
		 RETURNING login_attempts`,
		userID, threshold, lockUntil).Scan(&attempts)

	if err == pgx.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}

	return attempts, nil
}

// ResetLoginState clears the attempt counter and lock on successful
// authentication or password reset
func (r *UserRepositoryImpl) ResetLoginState(ctx context.Context, userID int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE users
		 SET login_attempts = 0,
		     lock_until = NULL
		 WHERE id = $1`,
		userID)
	return err
}

// UpdatePassword stores a new password hash
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	result, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		userID, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
