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

// ExpiryWarningWindow is how close to expiry a session must be before
// requests get an "about to expire" notice instead of the resource.
const ExpiryWarningWindow = 2 * time.Minute

// SessionService is the session lifecycle guard: it validates live
// sessions, detects the near-expiry window and performs secure renewal by
// regenerating the session id.
type SessionService struct {
	sessions     interfaces.SessionRepository
	log          *zap.Logger
	sessionTTL   time.Duration
	storeTimeout time.Duration
}

// NewSessionService creates a new session lifecycle service
func NewSessionService(sessions interfaces.SessionRepository, cfg *config.Config, log *zap.Logger) *SessionService {
	return &SessionService{
		sessions:     sessions,
		log:          log,
		sessionTTL:   cfg.SessionTTL,
		storeTimeout: cfg.StoreTimeout,
	}
}

// Get resolves a live session by id. Expired or unknown sessions report
// ErrNoActiveSession.
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	if sess.Expired(time.Now()) {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}

// AboutToExpire reports whether the session is inside the warning window:
// still valid, but close enough to expiry that the client should renew.
func (s *SessionService) AboutToExpire(sess *model.Session, now time.Time) bool {
	remaining := sess.Remaining(now)
	return remaining > 0 && remaining <= ExpiryWarningWindow
}

// Renew regenerates the session id while preserving the user payload,
// defeating session fixation. The swap is atomic: on any failure the old
// session remains fully valid and no new session exists.
func (s *SessionService) Renew(ctx context.Context, oldID, userAgent string) (*model.Session, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	old, err := s.sessions.GetByID(ctx, oldID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}

	now := time.Now()
	if old.Expired(now) {
		return nil, ErrNoActiveSession
	}

	fresh := &model.Session{
		ID:        uuid.NewString(),
		UserID:    old.UserID,
		Username:  old.Username,
		Role:      old.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
		UserAgent: userAgent,
	}

	if err := s.sessions.Replace(ctx, oldID, fresh); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Raced with a logout or a newer login.
			return nil, ErrNoActiveSession
		}
		s.log.Error("session regeneration failed, old session kept",
			zap.String("session_id", oldID), zap.Error(err))
		return nil, err
	}

	return fresh, nil
}

// Sweep deletes sessions past their TTL. Lookups already ignore expired
// rows, so this only reclaims storage.
func (s *SessionService) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.Warn("session sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("swept expired sessions", zap.Int64("count", n))
	}
}
