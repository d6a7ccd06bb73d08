package warden

import (
	"context"
	"errors"
	"net/http"
)

type contextKey string

const sessionContextKey contextKey = "wardenSession"

// Middleware validates the session cookie on incoming requests and makes
// the result available to downstream handlers via the request context.
type Middleware struct {
	Auth *Auth

	// GetRedirURL, when set, is where RequireSession sends unauthenticated
	// browser requests. Empty means a plain 401.
	GetRedirURL func(r *http.Request) string
}

// ExtractSession validates the request's session, rewrites the cookie when
// the session came back fresh, and stores the session in the request
// context. Requests without a valid session proceed with no session set; it
// performs no redirects. Storage failures are not "no session": they
// surface as a 500 and leave the client's cookie alone.
func (m *Middleware) ExtractSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.sessionFromRequest(w, r)
		if err != nil {
			http.Error(w, "session validation failed", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

// RequireSession behaves like ExtractSession but rejects requests that do
// not carry a valid session, either with a redirect (GetRedirURL) or a 401.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.sessionFromRequest(w, r)
		if err != nil {
			http.Error(w, "session validation failed", http.StatusInternalServerError)
			return
		}
		if session == nil {
			if m.GetRedirURL != nil {
				if to := m.GetRedirURL(r); to != "" {
					http.Redirect(w, r, to, http.StatusFound)
					return
				}
			}
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

// sessionFromRequest runs the CSRF check and the session validation. An
// authentication failure yields (nil, nil); only storage failures come back
// as errors, so callers can keep them distinct from "not logged in".
func (m *Middleware) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*Session, error) {
	auth := m.Auth.EnsureDefaults()
	if !auth.ValidateRequestOrigin(r.Method, r.Header.Get("Origin"), r.Host) {
		return nil, nil
	}
	sessionID := auth.ReadSessionCookie(r.Header.Get("Cookie"))
	if sessionID == "" {
		return nil, nil
	}
	session, err := auth.ValidateSession(r.Context(), sessionID)
	if errors.Is(err, ErrInvalidSessionID) {
		// Clear the dead cookie so the client stops presenting it.
		http.SetCookie(w, auth.Cookies.CreateBlankSessionCookie())
		return nil, nil
	}
	if err != nil {
		// The session may well be live; never blank the cookie here.
		return nil, err
	}
	if session.Fresh {
		http.SetCookie(w, auth.Cookies.CreateSessionCookie(session.ID, session.ExpiresAt))
	}
	return session, nil
}

func withSession(ctx context.Context, session *Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the session placed on the context by the
// middleware, or nil.
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}

// UserIDFromContext returns the authenticated user's ID, or "".
func UserIDFromContext(ctx context.Context) string {
	if session := SessionFromContext(ctx); session != nil {
		return session.UserID
	}
	return ""
}
