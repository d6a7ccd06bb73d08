package warden

import (
	"log/slog"
	"sync"
	"time"
)

// Auth is the authentication engine. It is stateless and safe for concurrent
// use; every operation is a single logical unit of work against the Adapter.
//
// The zero values of the exported fields are replaced with defaults on first
// use, so hosts only set what they care about:
//
//	auth := warden.New(adapter)
//	auth.SessionLifetime = 2 * time.Hour
type Auth struct {
	// Adapter is the storage contract. Required.
	Adapter Adapter

	// SessionLifetime is the absolute lifetime of a new session.
	// Defaults to 24 hours.
	SessionLifetime time.Duration

	// RenewalWindow is how close to expiry a validated session gets its
	// expiry extended. Defaults to half of SessionLifetime. The window
	// bounds how long a stolen session ID remains usable while sparing
	// active users a re-login on every near-expiry request.
	RenewalWindow time.Duration

	// Cookies issues and blanks the session cookie. Defaults to
	// NewCookieController("warden_session", dev=false).
	Cookies *CookieController

	// CSRFAllowedDomains extends the Origin allow-list beyond the request
	// Host. Entries may be exact hosts, "*.domain" wildcards, or "*" to
	// trust every origin.
	CSRFAllowedDomains []string

	// Logger receives diagnostics. Nil means silent.
	Logger *slog.Logger

	// Now is the clock, injectable for tests. Defaults to time.Now.
	Now func() time.Time

	defaultsOnce sync.Once
}

// New creates an engine bound to the given adapter with default settings.
func New(adapter Adapter) *Auth {
	return (&Auth{Adapter: adapter}).EnsureDefaults()
}

// EnsureDefaults fills unset fields with their defaults and returns a. It
// runs at most once per engine, so concurrent first use of a zero-value
// Auth does not race on the field writes. Fields reassigned after first use
// are taken as-is.
func (a *Auth) EnsureDefaults() *Auth {
	a.defaultsOnce.Do(a.applyDefaults)
	return a
}

func (a *Auth) applyDefaults() {
	if a.SessionLifetime <= 0 {
		a.SessionLifetime = 24 * time.Hour
	}
	if a.RenewalWindow <= 0 || a.RenewalWindow > a.SessionLifetime {
		a.RenewalWindow = a.SessionLifetime / 2
	}
	if a.Cookies == nil {
		a.Cookies = NewCookieController(DefaultSessionCookieName, false)
	}
	if a.Now == nil {
		a.Now = time.Now
	}
}

func (a *Auth) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.DiscardHandler)
}
