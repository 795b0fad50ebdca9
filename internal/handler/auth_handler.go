package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/tobanev/session-auth-service/internal/cookie"
	"github.com/tobanev/session-auth-service/internal/middleware"
	"github.com/tobanev/session-auth-service/internal/model"
	"github.com/tobanev/session-auth-service/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	codec    *cookie.Codec
	validate *validator.Validate
	log      *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, sessions *service.SessionService, codec *cookie.Codec, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		codec:    codec,
		validate: validator.New(),
		log:      log,
	}
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResetRequest struct {
	Username        string `json:"username" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type UserResponse struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email,omitempty"`
	Role     model.Role `json:"role"`
}

func userResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Signup handles user registration and starts a session for the new user
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		sendJSONError(w, "username, valid email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	user, sess, err := h.auth.Signup(r.Context(), req.Username, req.Email, req.Password, req.Role, r.UserAgent())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	if err := h.codec.Write(w, sess.ID, sess.ExpiresAt); err != nil {
		h.log.Error("failed to write session cookie", zap.Error(err))
		sendJSONError(w, "an unexpected error occurred", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "user registered successfully and session started",
		"user":    userResponse(user),
	})
}

// Login authenticates a user and establishes the single active session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		sendJSONError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, sess, err := h.auth.Login(r.Context(), req.Username, req.Password, r.UserAgent())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	if err := h.codec.Write(w, sess.ID, sess.ExpiresAt); err != nil {
		h.log.Error("failed to write session cookie", zap.Error(err))
		sendJSONError(w, "an unexpected error occurred", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message":   "login successful",
		"sessionId": sess.ID,
		"user":      UserResponse{ID: user.ID, Username: user.Username, Role: user.Role},
	})
}

// Logout destroys the current session and clears the cookie. It verifies
// the session itself rather than trusting upstream middleware.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, err := h.codec.Read(r)
	if err != nil {
		sendJSONError(w, "unauthorized, no active session found", http.StatusUnauthorized)
		return
	}

	if err := h.auth.Logout(r.Context(), sid); err != nil {
		h.sendServiceError(w, err)
		return
	}

	h.codec.Clear(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "logout successful"})
}

// Renew regenerates the session id for the authenticated user and returns
// the new identifier. On failure the old session remains valid.
func (h *AuthHandler) Renew(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		sendJSONError(w, "you must be logged in to renew your session", http.StatusUnauthorized)
		return
	}

	fresh, err := h.sessions.Renew(r.Context(), sess.ID, r.UserAgent())
	if err != nil {
		h.sendServiceError(w, err)
		return
	}

	if err := h.codec.Write(w, fresh.ID, fresh.ExpiresAt); err != nil {
		h.log.Error("failed to write renewed session cookie", zap.Error(err))
		sendJSONError(w, "an unexpected error occurred", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message":   "session successfully renewed",
		"sessionId": fresh.ID,
	})
}

// ResetPassword changes the password of the session's user
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		sendJSONError(w, "unauthorized, please log in to proceed", http.StatusUnauthorized)
		return
	}

	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		sendJSONError(w, "username and matching passwords of at least 8 characters are required", http.StatusBadRequest)
		return
	}
	if !strongPassword(req.NewPassword) {
		sendJSONError(w, "password must contain at least one uppercase letter and one digit", http.StatusBadRequest)
		return
	}

	if _, err := h.auth.ResetPassword(r.Context(), sess.ID, req.Username, req.NewPassword); err != nil {
		h.sendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "password reset successful"})
}

// Profile returns the authenticated user's snapshot from the session
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		sendJSONError(w, "unauthorized, please log in to proceed", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(principal)
}

// sendServiceError maps service-level sentinel errors onto HTTP statuses.
// Anything unrecognized is logged and reported as a generic 500.
func (h *AuthHandler) sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateUser):
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCredentials):
		sendJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrAccountLocked):
		sendJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrNoActiveSession):
		sendJSONError(w, "unauthorized, no active session found", http.StatusUnauthorized)
	default:
		h.log.Error("unexpected service error", zap.Error(err))
		sendJSONError(w, "an unexpected error occurred", http.StatusInternalServerError)
	}
}

// strongPassword enforces the reset policy of at least one uppercase letter
// and one digit (length is checked by the validator tag).
func strongPassword(password string) bool {
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && digit
}

// Helper function to send JSON error responses
func sendJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
