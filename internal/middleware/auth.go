package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// SessionCookie carries the session token issued at login.
	SessionCookie = "session"
	sessionMaxAge = 30 * 24 * time.Hour
)

// Sessions checks the shared password and tracks issued session tokens.
// An empty password disables authentication.
type Sessions struct {
	password string
	tokens   map[string]time.Time
	mutex    sync.Mutex
	now      func() time.Time
}

func NewSessions(password string) *Sessions {
	return &Sessions{password: password, tokens: make(map[string]time.Time), now: time.Now}
}

// Enabled reports whether a password is configured.
func (s *Sessions) Enabled() bool {
	return s.password != ""
}

// CheckPassword compares password with the configured one in constant time.
func (s *Sessions) CheckPassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
}

// Issue creates a session token.
func (s *Sessions) Issue() (string, time.Duration) {
	token := uuid.NewString()
	s.mutex.Lock()
	s.tokens[token] = s.now().Add(sessionMaxAge)
	s.mutex.Unlock()
	return token, sessionMaxAge
}

// Revoke forgets token.
func (s *Sessions) Revoke(token string) {
	s.mutex.Lock()
	delete(s.tokens, token)
	s.mutex.Unlock()
}

// Valid reports whether token was issued and has not expired.
func (s *Sessions) Valid(token string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	expires, ok := s.tokens[token]
	if !ok {
		return false
	}
	if s.now().After(expires) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// authorized accepts either a session cookie or the password as a bearer
// token, which suits scripts posting samples.
func (s *Sessions) authorized(r *http.Request) bool {
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return s.CheckPassword(bearer)
	}
	cookie, err := r.Cookie(SessionCookie)
	return err == nil && s.Valid(cookie.Value)
}

// AuthMiddleware rejects unauthenticated requests when a password is set.
// The login endpoint stays reachable.
func AuthMiddleware(sessions *Sessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sessions.Enabled() || r.URL.Path == "/auth/login" || sessions.authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
