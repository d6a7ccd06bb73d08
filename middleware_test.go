package warden_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wardenauth/warden"
	"github.com/wardenauth/warden/stores/memory"
)

// downAdapter fails every session lookup the way an unreachable store
// would. Embedding the interface keeps the joined-fetch capability off its
// method set, so the engine goes through GetSession.
type downAdapter struct {
	warden.Adapter
}

func (downAdapter) GetSession(ctx context.Context, sessionID string) (*warden.SessionRecord, error) {
	return nil, fmt.Errorf("store down: %w", warden.ErrStorageUnavailable)
}

func newSessionRequest(method, sessionID string) *http.Request {
	r := httptest.NewRequest(method, "/protected", nil)
	if sessionID != "" {
		r.AddCookie(&http.Cookie{Name: warden.DefaultSessionCookieName, Value: sessionID})
	}
	return r
}

func echoSessionHandler(t *testing.T, gotSession **warden.Session) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotSession = warden.SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestExtractSessionValid(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	session, err := auth.CreateSession(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var got *warden.Session
	mw := &warden.Middleware{Auth: auth}
	w := httptest.NewRecorder()
	mw.ExtractSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, session.ID))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if got == nil || got.UserID != "u1" {
		t.Fatalf("Context session = %+v, want u1's session", got)
	}
	if warden.UserIDFromContext(context.Background()) != "" {
		t.Error("UserIDFromContext on empty context returned a value")
	}
}

func TestExtractSessionMissingCookie(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	var got *warden.Session
	mw := &warden.Middleware{Auth: auth}
	w := httptest.NewRecorder()
	mw.ExtractSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, ""))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (extract never rejects)", w.Code)
	}
	if got != nil {
		t.Errorf("Expected no session in context, got %+v", got)
	}
}

func TestExtractSessionDeadCookieCleared(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	var got *warden.Session
	mw := &warden.Middleware{Auth: auth}
	w := httptest.NewRecorder()
	mw.ExtractSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, "no-such-session"))

	if got != nil {
		t.Fatalf("Invalid session ID produced a context session: %+v", got)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge != -1 {
		t.Errorf("Expected a blanking Set-Cookie, got %+v", cookies)
	}
}

func TestExtractSessionFreshRewritesCookie(t *testing.T) {
	auth, _, clock := newTestAuth(t)
	auth.SessionLifetime = 2 * time.Hour
	auth.RenewalWindow = time.Hour
	session, err := auth.CreateSession(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	clock.Advance(90 * time.Minute)

	var got *warden.Session
	mw := &warden.Middleware{Auth: auth}
	w := httptest.NewRecorder()
	mw.ExtractSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, session.ID))

	if got == nil || !got.Fresh {
		t.Fatalf("Renewal did not mark the session fresh: %+v", got)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != session.ID {
		t.Fatalf("Fresh session did not rewrite the cookie: %+v", cookies)
	}
	if !cookies[0].Expires.Equal(got.ExpiresAt) {
		t.Errorf("Rewritten cookie expiry %v, want %v", cookies[0].Expires, got.ExpiresAt)
	}
}

func TestExtractSessionCSRFBlocked(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	session, err := auth.CreateSession(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	var got *warden.Session
	mw := &warden.Middleware{Auth: auth}
	w := httptest.NewRecorder()
	r := newSessionRequest(http.MethodPost, session.ID)
	r.Header.Set("Origin", "https://evil.com")
	mw.ExtractSession(echoSessionHandler(t, &got)).ServeHTTP(w, r)

	if got != nil {
		t.Error("Cross-origin POST still produced an authenticated context")
	}
	if w.Code != http.StatusOK {
		t.Errorf("CSRF failure must degrade to unauthenticated, not reject: status %d", w.Code)
	}
}

func TestExtractSessionStorageFailure(t *testing.T) {
	auth := warden.New(downAdapter{Adapter: memory.NewAdapter()})

	var got *warden.Session
	mw := &warden.Middleware{Auth: auth}
	w := httptest.NewRecorder()
	mw.ExtractSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, "some-live-session"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500; an unreachable store is not \"not logged in\"", w.Code)
	}
	// The session may still be live server-side; the cookie must survive.
	if cookies := w.Result().Cookies(); len(cookies) != 0 {
		t.Errorf("Storage failure touched the session cookie: %+v", cookies)
	}
}

func TestRequireSessionStorageFailure(t *testing.T) {
	auth := warden.New(downAdapter{Adapter: memory.NewAdapter()})

	mw := &warden.Middleware{
		Auth:        auth,
		GetRedirURL: func(r *http.Request) string { return "/login" },
	}
	var got *warden.Session
	w := httptest.NewRecorder()
	mw.RequireSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, "some-live-session"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500, not a login redirect", w.Code)
	}
}

func TestRequireSessionUnauthorized(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	mw := &warden.Middleware{Auth: auth}
	w := httptest.NewRecorder()
	var got *warden.Session
	mw.RequireSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, ""))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", w.Code)
	}
}

func TestRequireSessionRedirect(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	mw := &warden.Middleware{
		Auth:        auth,
		GetRedirURL: func(r *http.Request) string { return "/login?next=" + r.URL.Path },
	}
	w := httptest.NewRecorder()
	var got *warden.Session
	mw.RequireSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, ""))

	if w.Code != http.StatusFound {
		t.Fatalf("Status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?next=/protected" {
		t.Errorf("Location = %q", loc)
	}
}

func TestRequireSessionPassesThrough(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	session, err := auth.CreateSession(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	mw := &warden.Middleware{Auth: auth}
	w := httptest.NewRecorder()
	var got *warden.Session
	mw.RequireSession(echoSessionHandler(t, &got)).ServeHTTP(w, newSessionRequest(http.MethodGet, session.ID))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if got == nil || got.UserID != "u1" {
		t.Errorf("Context session = %+v", got)
	}
}
