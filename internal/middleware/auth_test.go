package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tobanev/session-auth-service/internal/config"
	"github.com/tobanev/session-auth-service/internal/cookie"
	"github.com/tobanev/session-auth-service/internal/model"
	"github.com/tobanev/session-auth-service/internal/service"
	"github.com/tobanev/session-auth-service/internal/test"
	"go.uber.org/zap"
)

type authFixture struct {
	auth     *Authenticator
	codec    *cookie.Codec
	sessions *test.MockSessionRepository
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := test.NewMockDB()
	sessions := test.NewMockSessionRepository(db)
	cfg := &config.Config{SessionTTL: time.Hour, StoreTimeout: 2 * time.Second}
	codec := cookie.NewCodec("test-secret", false, time.Hour)
	svc := service.NewSessionService(sessions, cfg, zap.NewNop())
	return &authFixture{
		auth:     NewAuthenticator(svc, codec, zap.NewNop()),
		codec:    codec,
		sessions: sessions,
	}
}

func (f *authFixture) seed(t *testing.T, role model.Role, ttl time.Duration) *model.Session {
	t.Helper()
	now := time.Now()
	s := &model.Session{
		ID:        "sess-" + string(role),
		UserID:    7,
		Username:  "alice",
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	require.NoError(t, f.sessions.Create(context.Background(), s))
	return s
}

func (f *authFixture) request(t *testing.T, sess *model.Session) *http.Request {
	t.Helper()
	r := httptest.NewRequest("GET", "/protected", nil)
	if sess != nil {
		value, err := f.codec.Encode(sess.ID, sess.ExpiresAt)
		require.NoError(t, err)
		r.AddCookie(&http.Cookie{Name: cookie.Name, Value: value})
	}
	return r
}

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	f := newAuthFixture(t)
	sess := f.seed(t, model.RoleUser, time.Hour)

	t.Run("no cookie", func(t *testing.T) {
		var hit bool
		w := httptest.NewRecorder()
		f.auth.RequireAuth(okHandler(&hit)).ServeHTTP(w, f.request(t, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, hit)
	})

	t.Run("forged cookie", func(t *testing.T) {
		var hit bool
		r := httptest.NewRequest("GET", "/protected", nil)
		r.AddCookie(&http.Cookie{Name: cookie.Name, Value: "forged"})
		w := httptest.NewRecorder()
		f.auth.RequireAuth(okHandler(&hit)).ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, hit)
	})

	t.Run("valid session attaches principal", func(t *testing.T) {
		var principal model.Principal
		var ok bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		f.auth.RequireAuth(next).ServeHTTP(w, f.request(t, sess))
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, ok)
		assert.Equal(t, int64(7), principal.ID)
		assert.Equal(t, "alice", principal.Username)
		assert.Equal(t, model.RoleUser, principal.Role)
	})

	t.Run("destroyed session", func(t *testing.T) {
		require.NoError(t, f.sessions.Delete(context.Background(), sess.ID))
		var hit bool
		w := httptest.NewRecorder()
		f.auth.RequireAuth(okHandler(&hit)).ServeHTTP(w, f.request(t, sess))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, hit)
	})
}

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)

	serve := func(t *testing.T, role model.Role, gate model.Role) (*httptest.ResponseRecorder, bool) {
		t.Helper()
		sess := f.seed(t, role, time.Hour)
		var hit bool
		w := httptest.NewRecorder()
		chain := f.auth.RequireAuth(RequireRole(gate)(okHandler(&hit)))
		chain.ServeHTTP(w, f.request(t, sess))
		return w, hit
	}

	t.Run("user role is forbidden", func(t *testing.T) {
		w, hit := serve(t, model.RoleUser, model.RoleAdmin)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.False(t, hit)
	})

	t.Run("admin role passes", func(t *testing.T) {
		w, hit := serve(t, model.RoleAdmin, model.RoleAdmin)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, hit)
	})

	t.Run("invalid role requirement is a config error", func(t *testing.T) {
		w, hit := serve(t, model.RoleAdmin, model.Role("root"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, hit)
	})

	t.Run("no principal", func(t *testing.T) {
		var hit bool
		w := httptest.NewRecorder()
		RequireRole(model.RoleAdmin)(okHandler(&hit)).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, hit)
	})
}

func TestCheckExpiration(t *testing.T) {
	f := newAuthFixture(t)

	t.Run("plenty of lifetime passes through", func(t *testing.T) {
		sess := f.seed(t, model.RoleUser, time.Hour)
		var hit bool
		w := httptest.NewRecorder()
		f.auth.RequireAuth(f.auth.CheckExpiration(okHandler(&hit))).ServeHTTP(w, f.request(t, sess))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, hit)
	})

	t.Run("warning window is terminal but not an error", func(t *testing.T) {
		sess := f.seed(t, model.RoleUser, 90*time.Second)
		var hit bool
		w := httptest.NewRecorder()
		f.auth.RequireAuth(f.auth.CheckExpiration(okHandler(&hit))).ServeHTTP(w, f.request(t, sess))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, hit, "warning must short-circuit the handler")
		assert.Contains(t, w.Body.String(), "about to expire")
	})

	t.Run("no session metadata", func(t *testing.T) {
		var hit bool
		w := httptest.NewRecorder()
		f.auth.CheckExpiration(okHandler(&hit)).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, hit)
	})
}
