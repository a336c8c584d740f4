package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_DisabledWithoutPassword(t *testing.T) {
	h := AuthMiddleware(NewSessions(""), okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rows", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	sessions := NewSessions("secret")
	token, _ := sessions.Issue()
	h := AuthMiddleware(sessions, okHandler())

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{"no credentials", "/api/rows", "", "", http.StatusUnauthorized},
		{"login is public", "/auth/login", "", "", http.StatusOK},
		{"bearer password", "/api/samples", "Bearer secret", "", http.StatusOK},
		{"wrong bearer", "/api/samples", "Bearer nope", "", http.StatusUnauthorized},
		{"session cookie", "/charts", "", token, http.StatusOK},
		{"unknown cookie", "/charts", "", "forged", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestSessions_ExpireAndRevoke(t *testing.T) {
	s := NewSessions("secret")
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token, maxAge := s.Issue()
	if !s.Valid(token) {
		t.Fatal("fresh token should be valid")
	}

	now = now.Add(maxAge + time.Second)
	if s.Valid(token) {
		t.Error("expired token should be rejected")
	}

	token, _ = s.Issue()
	s.Revoke(token)
	if s.Valid(token) {
		t.Error("revoked token should be rejected")
	}
}
