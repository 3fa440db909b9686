package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/hangr/internal/application"
)

func TestRequireSession(t *testing.T) {
	t.Parallel()

	validator := fakeSessionValidator{principals: map[string]application.Principal{
		"good-token": {UserID: "user-1", DisplayName: "Ana"},
	}}

	tests := []struct {
		name           string
		cookie         *http.Cookie
		header         string
		expectedStatus int
		expectedUser   string
	}{
		{name: "missing credentials", expectedStatus: http.StatusUnauthorized},
		{name: "malformed bearer header", header: "Token good-token", expectedStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer other", expectedStatus: http.StatusUnauthorized},
		{name: "bearer header", header: "Bearer good-token", expectedStatus: http.StatusOK, expectedUser: "user-1"},
		{name: "session cookie", cookie: &http.Cookie{Name: sessionCookieName, Value: "good-token"}, expectedStatus: http.StatusOK, expectedUser: "user-1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			var gotUser string
			handler := RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal, _ := PrincipalFromContext(r.Context())
				gotUser = principal.UserID
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Fatalf("expected status %d, got %d", tc.expectedStatus, rec.Code)
			}
			if gotUser != tc.expectedUser {
				t.Fatalf("expected principal %q, got %q", tc.expectedUser, gotUser)
			}
		})
	}
}

func TestRequireSessionReportsExpiredSessions(t *testing.T) {
	t.Parallel()

	handler := RequireSession(fakeSessionValidator{err: application.ErrSessionExpired}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run for expired sessions")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	body := decodeBody[errorResponse](t, rec)
	if body.ErrorCode != "AUTH_SESSION_EXPIRED" {
		t.Fatalf("expected AUTH_SESSION_EXPIRED, got %q", body.ErrorCode)
	}
}

func TestOptionalSession(t *testing.T) {
	t.Parallel()

	validator := fakeSessionValidator{principals: map[string]application.Principal{
		"good-token": {UserID: "user-1"},
	}}

	tests := []struct {
		name         string
		validator    SessionValidator
		header       string
		expectedUser string
	}{
		{name: "anonymous", validator: validator},
		{name: "invalid token is ignored", validator: validator, header: "Bearer nope"},
		{name: "validator failure is ignored", validator: fakeSessionValidator{err: errors.New("db down")}, header: "Bearer good-token"},
		{name: "valid token attaches principal", validator: validator, header: "Bearer good-token", expectedUser: "user-1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/plans", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			called := false
			var gotUser string
			handler := OptionalSession(tc.validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				if principal := principalPtr(r.Context()); principal != nil {
					gotUser = principal.UserID
				}
			}))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if !called {
				t.Fatal("expected next handler to run")
			}
			if gotUser != tc.expectedUser {
				t.Fatalf("expected principal %q, got %q", tc.expectedUser, gotUser)
			}
		})
	}
}

func TestClientSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	existing := uuid.NewString()

	tests := []struct {
		name        string
		cookie      string
		expectIssue bool
	}{
		{name: "issues a key when absent", expectIssue: true},
		{name: "replaces a malformed key", cookie: "not-a-uuid", expectIssue: true},
		{name: "keeps a valid key", cookie: existing},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/plans", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: clientCookieName, Value: tc.cookie})
			}

			var key string
			handler := ClientSession(func() time.Time { return now })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				key = ClientKeyFromContext(r.Context())
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			cookies := rec.Result().Cookies()
			if !tc.expectIssue {
				if key != existing {
					t.Fatalf("expected key %q, got %q", existing, key)
				}
				if len(cookies) != 0 {
					t.Fatalf("expected no cookie to be set, got %v", cookies)
				}
				return
			}

			if _, err := uuid.Parse(key); err != nil {
				t.Fatalf("expected a uuid client key, got %q", key)
			}
			if len(cookies) != 1 || cookies[0].Name != clientCookieName || cookies[0].Value != key {
				t.Fatalf("expected %s cookie with the issued key, got %v", clientCookieName, cookies)
			}
			if !cookies[0].HttpOnly {
				t.Fatal("expected client cookie to be HttpOnly")
			}
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	t.Parallel()

	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected wrapped status to pass through, got %d", rec.Code)
	}
	if _, err := uuid.Parse(rec.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("expected generated request id, got %q", rec.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}
