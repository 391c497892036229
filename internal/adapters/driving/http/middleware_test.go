package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custodia-labs/cms-mirror/internal/core/domain"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{name: "valid bearer token", header: "Bearer abc123", expected: "abc123"},
		{name: "bearer with extra spaces", header: "Bearer   token-with-spaces   ", expected: "token-with-spaces"},
		{name: "lowercase bearer", header: "bearer token123", expected: "token123"},
		{name: "empty header", header: "", expected: ""},
		{name: "no bearer prefix", header: "token123", expected: ""},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			if got := extractBearerToken(req); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestGetAuthContext(t *testing.T) {
	if GetAuthContext(context.Background()) != nil {
		t.Error("expected nil for context without auth")
	}

	authCtx := &domain.AuthContext{Subject: "admin", Role: domain.RoleAdmin}
	ctx := context.WithValue(context.Background(), authContextKey, authCtx)

	got := GetAuthContext(ctx)
	if got == nil {
		t.Fatal("expected auth context to be returned")
	}
	if got.Subject != "admin" {
		t.Errorf("expected subject admin, got %s", got.Subject)
	}
	if !got.IsAdmin() {
		t.Error("expected admin role")
	}
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing token", header: "", wantStatus: http.StatusUnauthorized, wantBody: "missing authorization token"},
		{name: "expired token", header: "Bearer expired-token", wantStatus: http.StatusUnauthorized, wantBody: "token expired"},
		{name: "invalid token", header: "Bearer garbage", wantStatus: http.StatusUnauthorized, wantBody: "invalid token"},
		{name: "valid token", header: "Bearer reader-token", wantStatus: http.StatusOK, wantBody: "reader"},
	}

	mw := NewAuthMiddleware(&mockAuthService{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetAuthContext(r.Context()).Subject))
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %q, got %q", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	mw := NewAuthMiddleware(&mockAuthService{})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		authCtx    *domain.AuthContext
		wantStatus int
	}{
		{name: "admin", authCtx: &domain.AuthContext{Subject: "admin", Role: domain.RoleAdmin}, wantStatus: http.StatusNoContent},
		{name: "reader", authCtx: &domain.AuthContext{Subject: "reader", Role: domain.RoleReader}, wantStatus: http.StatusForbidden},
		{name: "no context", authCtx: nil, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.authCtx != nil {
				req = req.WithContext(context.WithValue(req.Context(), authContextKey, tt.authCtx))
			}
			rr := httptest.NewRecorder()

			mw.RequireAdmin(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	mw.Handler(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tags", nil))

	if rr.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", rr.Code)
	}
	out := buf.String()
	for _, want := range []string{"path=/api/v1/tags", "status=418", "method=GET"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got %q", want, out)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	mw := NewRecoveryMiddleware(quietLogger())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	rr := httptest.NewRecorder()
	mw.Handler(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	mw := NewCORSMiddleware([]string{"https://example.com"})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
		req.Header.Set("Origin", "https://example.com")
		rr := httptest.NewRecorder()
		mw.Handler(handler).ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
			t.Errorf("expected allow origin header, got %q", got)
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := httptest.NewRecorder()
		mw.Handler(handler).ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("expected no allow origin header, got %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/sync", nil)
		req.Header.Set("Origin", "https://example.com")
		rr := httptest.NewRecorder()
		mw.Handler(handler).ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rr.Code)
		}
	})
}

func TestServer_CORSWiredFromConfig(t *testing.T) {
	s := NewServer(Config{AllowedOrigins: []string{"*"}, Logger: quietLogger()}, Dependencies{
		Content: &mockContentService{},
		Auth:    &mockAuthService{},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://site.example")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://site.example" {
		t.Errorf("expected CORS header from server config, got %q", got)
	}
}
