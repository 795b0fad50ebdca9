// Package cookie signs and verifies the session cookie. The cookie value is
// an HS256-signed envelope around the opaque session id, so a tampered or
// forged cookie is rejected before the session store is ever consulted.
package cookie

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Name is the session cookie name.
const Name = "session_id"

var (
	ErrInvalidCookie = errors.New("invalid session cookie")
	ErrNoCookie      = errors.New("no session cookie")
)

// Codec encodes session ids into signed cookie values and back.
type Codec struct {
	secret []byte
	secure bool
	maxAge time.Duration
}

// NewCodec creates a codec. secure controls the cookie's Secure attribute
// and should be true in production.
func NewCodec(secret string, secure bool, maxAge time.Duration) *Codec {
	return &Codec{secret: []byte(secret), secure: secure, maxAge: maxAge}
}

// Encode wraps a session id in a signed envelope expiring alongside the
// session itself.
func (c *Codec) Encode(sessionID string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sessionID,
		"exp": expiresAt.Unix(),
	})
	return token.SignedString(c.secret)
}

// Decode verifies the envelope and returns the session id inside.
func (c *Codec) Decode(value string) (string, error) {
	token, err := jwt.Parse(value, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCookie
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCookie
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCookie
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", ErrInvalidCookie
	}

	return sid, nil
}

// Read extracts and verifies the session id from an incoming request.
func (c *Codec) Read(r *http.Request) (string, error) {
	ck, err := r.Cookie(Name)
	if err != nil {
		return "", ErrNoCookie
	}
	return c.Decode(ck.Value)
}

// Write sets the session cookie for a freshly issued session id.
func (c *Codec) Write(w http.ResponseWriter, sessionID string, expiresAt time.Time) error {
	value, err := c.Encode(sessionID, expiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear instructs the client to discard the session cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
