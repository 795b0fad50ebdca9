package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tobanev/session-auth-service/internal/cookie"
	"github.com/tobanev/session-auth-service/internal/model"
	"github.com/tobanev/session-auth-service/internal/service"
	"go.uber.org/zap"
)

// Define a custom type for context keys
type contextKey string

const (
	principalKey contextKey = "principal"
	sessionKey   contextKey = "session"
)

// Authenticator resolves the session cookie into a typed principal and
// gates protected routes.
type Authenticator struct {
	sessions *service.SessionService
	codec    *cookie.Codec
	log      *zap.Logger
}

func NewAuthenticator(sessions *service.SessionService, codec *cookie.Codec, log *zap.Logger) *Authenticator {
	return &Authenticator{sessions: sessions, codec: codec, log: log}
}

// RequireAuth passes through only when a valid session with a user id is
// presented. It attaches the session and its principal to the request
// context for downstream handlers.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, err := a.codec.Read(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized, please log in to proceed")
			return
		}

		sess, err := a.sessions.Get(r.Context(), sid)
		if err != nil {
			if err != service.ErrNoActiveSession {
				a.log.Error("session lookup failed", zap.Error(err))
				respondError(w, http.StatusInternalServerError, "an unexpected error occurred")
				return
			}
			respondError(w, http.StatusUnauthorized, "unauthorized, please log in to proceed")
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		ctx = context.WithValue(ctx, principalKey, sess.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CheckExpiration short-circuits with a renewal notice when the session is
// inside the expiry warning window. The notice is a 200, not a rejection,
// but it is terminal for the request. Runs after RequireAuth.
func (a *Authenticator) CheckExpiration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "session expired, please log in again")
			return
		}

		if a.sessions.AboutToExpire(sess, time.Now()) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"message": "your session is about to expire, would you like to renew it?",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole passes through only when the authenticated principal holds
// the given role. A role outside the enumerated set is a configuration
// error and yields 400 for every request through the route.
func RequireRole(role model.Role) func(http.Handler) http.Handler {
	_, roleErr := model.ParseRole(string(role))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if roleErr != nil {
				respondError(w, http.StatusBadRequest, "invalid role requirement")
				return
			}

			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthorized, please log in to proceed")
				return
			}
			if principal.Role != role {
				respondError(w, http.StatusForbidden, "access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext returns the authenticated principal attached by
// RequireAuth.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok
}

// SessionFromContext returns the session record attached by RequireAuth.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok
}

func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
