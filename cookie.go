package warden

import (
	"net/http"
	"time"
)

// DefaultSessionCookieName is the cookie the engine reads session IDs from
// unless the host rebinds the controller.
const DefaultSessionCookieName = "warden_session"

// CookieAttributes is the standard attribute set for issued cookies. It is
// deliberately framework-free; SerializeCookie turns it into a Set-Cookie
// header value any transport can emit.
type CookieAttributes struct {
	Domain   string
	Path     string
	Expires  time.Time
	MaxAge   int
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// SerializeCookie renders a Set-Cookie header value for the given name,
// value and attributes.
func SerializeCookie(name, value string, attrs CookieAttributes) string {
	c := http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   attrs.Domain,
		Path:     attrs.Path,
		Expires:  attrs.Expires,
		MaxAge:   attrs.MaxAge,
		HttpOnly: attrs.HttpOnly,
		Secure:   attrs.Secure,
		SameSite: attrs.SameSite,
	}
	return c.String()
}

// ParseCookies parses a Cookie request header into a name/value map. The
// last occurrence of a repeated name wins. A malformed header yields an
// empty map rather than an error; a garbage cookie is just a missing cookie.
func ParseCookies(header string) map[string]string {
	out := map[string]string{}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return out
	}
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out
}

// CookieController binds a fixed cookie name and base attributes so session
// cookies are issued uniformly across the host application.
type CookieController struct {
	Name string

	// Base attributes applied to every issued cookie. Expires and MaxAge
	// are controlled per cookie.
	Base CookieAttributes
}

// NewCookieController returns a controller with the secure defaults:
// HttpOnly, Path=/, SameSite=Lax, and Secure unless dev is true (local
// development happens over plain HTTP).
func NewCookieController(name string, dev bool) *CookieController {
	return &CookieController{
		Name: name,
		Base: CookieAttributes{
			Path:     "/",
			HttpOnly: true,
			Secure:   !dev,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

// CreateSessionCookie issues the session cookie. The value is the raw
// session ID: integrity comes from the ID's entropy plus the server-side
// lookup, not from an embedded signature.
func (c *CookieController) CreateSessionCookie(sessionID string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    sessionID,
		Domain:   c.Base.Domain,
		Path:     c.Base.Path,
		Expires:  expiresAt,
		HttpOnly: c.Base.HttpOnly,
		Secure:   c.Base.Secure,
		SameSite: c.Base.SameSite,
	}
}

// CreateBlankSessionCookie issues an immediately expiring cookie that clears
// the session cookie on the client.
func (c *CookieController) CreateBlankSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Domain:   c.Base.Domain,
		Path:     c.Base.Path,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: c.Base.HttpOnly,
		Secure:   c.Base.Secure,
		SameSite: c.Base.SameSite,
	}
}

// ReadSessionCookie extracts the session ID from a Cookie request header.
// Empty string when the cookie is missing.
func (a *Auth) ReadSessionCookie(cookieHeader string) string {
	a.EnsureDefaults()
	return ParseCookies(cookieHeader)[a.Cookies.Name]
}
