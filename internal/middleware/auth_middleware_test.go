package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/auth"
	appctx "github.com/andriwardana/storefront/backend/internal/context"
)

type stubValidator struct {
	token   string
	info    *auth.SessionInfo
	touched []uuid.UUID
}

func (s *stubValidator) Validate(ctx context.Context, token string) (*auth.SessionInfo, error) {
	if s.info != nil && token == s.token {
		return s.info, nil
	}
	return nil, auth.ErrInvalidSession
}

func (s *stubValidator) TouchActivity(ctx context.Context, sessionID uuid.UUID) {
	s.touched = append(s.touched, sessionID)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	userID := uuid.New()
	sessionID := uuid.New()
	stub := &stubValidator{
		token: "good-token",
		info:  &auth.SessionInfo{SessionID: sessionID, UserID: userID},
	}
	mw := NewAuthMiddleware(stub)

	var gotUser, gotSession uuid.UUID
	var found bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, found = appctx.ExtractUserID(r.Context())
		gotSession, _ = appctx.ExtractSessionID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	mw.Authenticate(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !found || gotUser != userID {
		t.Errorf("user in context = %v, want %v", gotUser, userID)
	}
	if gotSession != sessionID {
		t.Errorf("session in context = %v, want %v", gotSession, sessionID)
	}
	if len(stub.touched) != 1 || stub.touched[0] != sessionID {
		t.Errorf("touched sessions = %v, want [%v]", stub.touched, sessionID)
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	mw := NewAuthMiddleware(&stubValidator{})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()

	mw.Authenticate(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticate_BadHeaderFormats(t *testing.T) {
	mw := NewAuthMiddleware(&stubValidator{})

	for _, header := range []string{"good-token", "Basic abc", "Bearer ", "Bearer"} {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("next handler must not run for header %q", header)
		})

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()

		mw.Authenticate(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	mw := NewAuthMiddleware(&stubValidator{})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	rec := httptest.NewRecorder()

	mw.Authenticate(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
