package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tobanev/session-auth-service/internal/config"
	"github.com/tobanev/session-auth-service/internal/interfaces"
	"github.com/tobanev/session-auth-service/internal/model"
	"github.com/tobanev/session-auth-service/internal/repository"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials covers both unknown username and wrong password,
	// so responses never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
	ErrDuplicateUser      = errors.New("user already exists, please use a different email or username")
	ErrNoActiveSession    = errors.New("no active session")
)

// AuthService orchestrates signup, login, logout and password reset against
// the credential and session stores, enforcing the lockout and
// single-session policies.
type AuthService struct {
	users    interfaces.UserRepository
	sessions interfaces.SessionRepository
	log      *zap.Logger

	lockThreshold int
	lockDuration  time.Duration
	sessionTTL    time.Duration
	storeTimeout  time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(users interfaces.UserRepository, sessions interfaces.SessionRepository, cfg *config.Config, log *zap.Logger) *AuthService {
	return &AuthService{
		users:         users,
		sessions:      sessions,
		log:           log,
		lockThreshold: cfg.LockThreshold,
		lockDuration:  cfg.LockDuration,
		sessionTTL:    cfg.SessionTTL,
		storeTimeout:  cfg.StoreTimeout,
	}
}

// Signup registers a user with a hashed password and starts a session for
// them. An unassignable role silently becomes "user".
func (s *AuthService) Signup(ctx context.Context, username, email, password, role, userAgent string) (*model.User, *model.Session, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := s.mutationContext(ctx)
	defer cancel()

	user, err := s.users.CreateUser(ctx, username, email, hash, model.CoerceRole(role))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, nil, ErrDuplicateUser
		}
		return nil, nil, err
	}

	sess := s.newSession(user, userAgent)
	if err := s.sessions.Create(ctx, sess); err != nil {
		s.log.Error("failed to create session after signup",
			zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, nil, err
	}

	return user, sess, nil
}

// Login authenticates by username and password. On success it resets the
// lockout counters and replaces any prior session for the user; success is
// only reported once the new session is durably saved.
func (s *AuthService) Login(ctx context.Context, username, password, userAgent string) (*model.User, *model.Session, error) {
	// Attempt counting and session replacement must complete even if the
	// client disconnects mid-request.
	ctx, cancel := s.mutationContext(ctx)
	defer cancel()

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a comparable amount of time so the miss is not observable.
			VerifyPassword(password, dummyHash)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	now := time.Now()
	if user.Locked(now) {
		// No password check and no attempt consumed while the lock holds.
		return nil, nil, ErrAccountLocked
	}

	if !VerifyPassword(password, user.PasswordHash) {
		attempts, err := s.users.RecordFailedLogin(ctx, user.ID, s.lockThreshold, now.Add(s.lockDuration))
		if err != nil {
			return nil, nil, err
		}
		if attempts >= s.lockThreshold {
			s.log.Warn("account locked after repeated failures",
				zap.Int64("user_id", user.ID), zap.Int("attempts", attempts))
			return nil, nil, ErrAccountLocked
		}
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.users.ResetLoginState(ctx, user.ID); err != nil {
		return nil, nil, err
	}
	user.LoginAttempts = 0
	user.LockUntil = nil

	// Single-session policy: the store replaces any prior session for this
	// user atomically with the insert.
	sess := s.newSession(user, userAgent)
	if err := s.sessions.Create(ctx, sess); err != nil {
		s.log.Error("failed to persist session",
			zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, nil, err
	}

	return user, sess, nil
}

// Logout destroys the session record. A missing or already destroyed
// session reports ErrNoActiveSession, so double logout is a 401, not a 500.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	ctx, cancel := s.mutationContext(ctx)
	defer cancel()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrNoActiveSession
		}
		return err
	}
	return nil
}

// ResetPassword changes the password of the session's user. The supplied
// username must match the session user, and a locked account may not reset.
// The session survives but its denormalized user data is reissued.
func (s *AuthService) ResetPassword(ctx context.Context, sessionID, username, newPassword string) (*model.User, error) {
	ctx, cancel := s.mutationContext(ctx)
	defer cancel()

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	// Session data could be stale or forged; never reset across accounts.
	if user.Username != username {
		return nil, ErrNoActiveSession
	}

	if user.Locked(time.Now()) {
		return nil, ErrAccountLocked
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	if err := s.users.ResetLoginState(ctx, user.ID); err != nil {
		return nil, err
	}
	user.LoginAttempts = 0
	user.LockUntil = nil

	if err := s.sessions.UpdatePrincipal(ctx, sess.ID, user.Username, user.Role); err != nil {
		s.log.Error("failed to reissue session user data",
			zap.String("session_id", sess.ID), zap.Error(err))
		return nil, err
	}

	return user, nil
}

func (s *AuthService) newSession(user *model.User, userAgent string) *model.Session {
	now := time.Now()
	return &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		UserAgent: userAgent,
	}
}

// mutationContext detaches the store interaction from the client's cancel
// signal while keeping it bounded, so in-flight mutations run to completion
// instead of leaving half-applied auth state.
func (s *AuthService) mutationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
}

// dummyHash is a bcrypt digest of a throwaway value, compared against when
// the username does not resolve so lookup misses take as long as mismatches.
var dummyHash = func() string {
	h, _ := HashPassword("timing-equalizer")
	return h
}()
