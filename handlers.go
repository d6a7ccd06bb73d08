package warden

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Handlers is an optional, mountable HTTP surface over the engine for hosts
// that want batteries included: password login, signup, logout, plus
// subtrees for federation handlers. Hosts with their own transport ignore
// this type entirely and call the engine directly.
type Handlers struct {
	Auth *Auth

	// PasswordProviderID is the provider ID used for password keys.
	// Defaults to "password".
	PasswordProviderID string

	// NewUserID mints IDs for signed-up users. Defaults to uuid.NewString.
	NewUserID func() string

	// OnSignup may reject or enrich the attribute set persisted with a new
	// user. Nil accepts the attributes as posted (none).
	OnSignup func(r *http.Request) (map[string]any, error)

	router *mux.Router
}

// Router builds (once) and returns the route set:
//
//	POST /login    — password authentication, sets the session cookie
//	POST /signup   — create user + password key, sets the session cookie
//	POST /logout   — invalidate the current session, blank the cookie
//	GET  /session  — report the current session (JSON)
//
// Federation handlers are added with AddProvider.
func (h *Handlers) Router() *mux.Router {
	if h.router == nil {
		h.ensureDefaults()
		h.router = mux.NewRouter()
		h.router.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)
		h.router.HandleFunc("/signup", h.handleSignup).Methods(http.MethodPost)
		h.router.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)
		h.router.HandleFunc("/session", h.handleSession).Methods(http.MethodGet)
	}
	return h.router
}

// ServeHTTP makes Handlers mountable directly on any stdlib mux.
func (h *Handlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Router().ServeHTTP(w, r)
}

// AddProvider mounts a federation handler (typically an oauth2.Flow's
// Mount target) under /{name}/. A bare /{name} without the trailing slash
// is served as the handler's root route, so linked login URLs work either
// way.
func (h *Handlers) AddProvider(name string, handler http.Handler) *Handlers {
	prefix := "/" + name
	h.Router().Handle(prefix, providerRoot(handler))
	h.Router().PathPrefix(prefix + "/").Handler(
		http.StripPrefix(prefix, handler))
	return h
}

// providerRoot rewrites the request path to "/" so the mounted handler sees
// its root route for the bare prefix URL.
func providerRoot(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.Clone(r.Context())
		r.URL.Path = "/"
		handler.ServeHTTP(w, r)
	})
}

func (h *Handlers) ensureDefaults() {
	if h.PasswordProviderID == "" {
		h.PasswordProviderID = "password"
	}
	if h.NewUserID == nil {
		h.NewUserID = uuid.NewString
	}
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	auth := h.Auth.EnsureDefaults()
	if !auth.ValidateRequestOrigin(r.Method, r.Header.Get("Origin"), r.Host) {
		h.writeError(w, http.StatusForbidden, "cross-origin request rejected")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		h.writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := auth.UseKey(r.Context(), h.PasswordProviderID, username, &password)
	if err != nil {
		if errors.Is(err, ErrInvalidKeyID) || errors.Is(err, ErrInvalidPassword) {
			// One message for both, so login cannot enumerate accounts.
			h.writeError(w, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.startSession(w, r, user)
}

func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	auth := h.Auth.EnsureDefaults()
	if !auth.ValidateRequestOrigin(r.Method, r.Header.Get("Origin"), r.Host) {
		h.writeError(w, http.StatusForbidden, "cross-origin request rejected")
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || len(password) < 8 {
		h.writeError(w, http.StatusBadRequest, "username and a password of at least 8 characters required")
		return
	}

	attributes := map[string]any{}
	if h.OnSignup != nil {
		var err error
		if attributes, err = h.OnSignup(r); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	user := &User{ID: h.NewUserID(), Attributes: attributes}
	if _, err := auth.CreateUserWithKey(r.Context(), user, h.PasswordProviderID, username, &password); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			h.writeError(w, http.StatusConflict, "username already registered")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	h.startSession(w, r, user)
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth := h.Auth.EnsureDefaults()
	if !auth.ValidateRequestOrigin(r.Method, r.Header.Get("Origin"), r.Host) {
		h.writeError(w, http.StatusForbidden, "cross-origin request rejected")
		return
	}
	if sessionID := auth.ReadSessionCookie(r.Header.Get("Cookie")); sessionID != "" {
		if err := auth.InvalidateSession(r.Context(), sessionID); err != nil {
			h.writeError(w, http.StatusInternalServerError, "logout failed")
			return
		}
	}
	http.SetCookie(w, auth.Cookies.CreateBlankSessionCookie())
	h.writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *Handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	auth := h.Auth.EnsureDefaults()
	sessionID := auth.ReadSessionCookie(r.Header.Get("Cookie"))
	session, err := auth.ValidateSession(r.Context(), sessionID)
	if errors.Is(err, ErrInvalidSessionID) {
		h.writeError(w, http.StatusUnauthorized, "no session")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if session.Fresh {
		http.SetCookie(w, auth.Cookies.CreateSessionCookie(session.ID, session.ExpiresAt))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt,
	})
}

// startSession is the shared tail of login and signup.
func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, user *User) {
	auth := h.Auth
	session, err := auth.CreateSession(r.Context(), user.ID, nil)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	http.SetCookie(w, auth.Cookies.CreateSessionCookie(session.ID, session.ExpiresAt))
	h.writeJSON(w, http.StatusOK, map[string]any{"user_id": user.ID})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]any{"error": msg})
}
