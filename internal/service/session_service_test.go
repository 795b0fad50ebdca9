package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobanev/session-auth-service/internal/model"
	"github.com/tobanev/session-auth-service/internal/test"
	"go.uber.org/zap"
)

func newTestSessionService() (*SessionService, *test.MockSessionRepository) {
	db := test.NewMockDB()
	sessions := test.NewMockSessionRepository(db)
	return NewSessionService(sessions, testConfig(), zap.NewNop()), sessions
}

func seedSession(t *testing.T, sessions *test.MockSessionRepository, ttl time.Duration) *model.Session {
	t.Helper()
	now := time.Now()
	s := &model.Session{
		ID:        "seed-session",
		UserID:    1,
		Username:  "alice",
		Role:      model.RoleUser,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	require.NoError(t, sessions.Create(context.Background(), s))
	return s
}

func TestSessionGet(t *testing.T) {
	svc, sessions := newTestSessionService()
	ctx := context.Background()

	sess := seedSession(t, sessions, time.Hour)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.Role, got.Role)

	_, err = svc.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestSessionGetExpired(t *testing.T) {
	svc, sessions := newTestSessionService()

	sess := seedSession(t, sessions, -time.Second)

	_, err := svc.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestAboutToExpire(t *testing.T) {
	svc, _ := newTestSessionService()
	now := time.Now()

	tests := []struct {
		name      string
		remaining time.Duration
		want      bool
	}{
		{"plenty of time left", time.Hour, false},
		{"inside warning window", 90 * time.Second, true},
		{"at window edge", ExpiryWarningWindow, true},
		{"already expired", -time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &model.Session{ExpiresAt: now.Add(tt.remaining)}
			assert.Equal(t, tt.want, svc.AboutToExpire(sess, now))
		})
	}
}

func TestRenewRegeneratesSessionID(t *testing.T) {
	svc, sessions := newTestSessionService()
	ctx := context.Background()

	old := seedSession(t, sessions, time.Hour)

	fresh, err := svc.Renew(ctx, old.ID, "renew-agent")
	require.NoError(t, err)

	assert.NotEqual(t, old.ID, fresh.ID, "renew must issue a new session id")
	assert.Equal(t, old.UserID, fresh.UserID, "user payload must be preserved")
	assert.Equal(t, old.Username, fresh.Username)
	assert.Equal(t, old.Role, fresh.Role)

	// The old id is no longer accepted.
	_, err = svc.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = svc.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestRenewWithoutSession(t *testing.T) {
	svc, _ := newTestSessionService()

	_, err := svc.Renew(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestRenewFailureKeepsOldSession(t *testing.T) {
	svc, sessions := newTestSessionService()
	ctx := context.Background()

	old := seedSession(t, sessions, time.Hour)
	sessions.ReplaceErr = errors.New("store unavailable")

	_, err := svc.Renew(ctx, old.ID, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoActiveSession)

	// No partial state: the old session must still be fully valid.
	sessions.ReplaceErr = nil
	got, err := svc.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, old.ID, got.ID)
}

func TestSweep(t *testing.T) {
	svc, sessions := newTestSessionService()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, sessions.Create(ctx, &model.Session{
		ID: "live", UserID: 1, Username: "a", Role: model.RoleUser,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, sessions.Create(ctx, &model.Session{
		ID: "dead", UserID: 2, Username: "b", Role: model.RoleUser,
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	svc.Sweep(ctx)

	_, err := svc.Get(ctx, "live")
	assert.NoError(t, err)
	_, err = svc.Get(ctx, "dead")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}
