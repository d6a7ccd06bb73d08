package warden

import (
	"net/url"
	"strings"
)

// safeMethods never mutate state, so they skip the Origin check.
var safeMethods = map[string]bool{
	"GET":     true,
	"HEAD":    true,
	"OPTIONS": true,
	"TRACE":   true,
}

// VerifyRequestOrigin reports whether origin's host is covered by the
// allow-list. Entries may be exact hosts ("app.example.com"), wildcard
// subdomains ("*.example.com", which also covers the apex), or "*" to trust
// everything.
func VerifyRequestOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host
	for _, entry := range allowed {
		if entry == "" {
			continue
		}
		if entry == "*" || entry == host {
			return true
		}
		if suffix, ok := strings.CutPrefix(entry, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
		}
	}
	return false
}

// ValidateRequestOrigin is the CSRF check for state-mutating requests: the
// Origin header must match the request Host or one of CSRFAllowedDomains.
// Safe methods always pass. A failing check means the request is treated as
// unauthenticated — the session simply is not validated — never as a
// transport error.
func (a *Auth) ValidateRequestOrigin(method, originHeader, hostHeader string) bool {
	a.EnsureDefaults()
	if safeMethods[strings.ToUpper(method)] {
		return true
	}
	allowed := make([]string, 0, len(a.CSRFAllowedDomains)+1)
	if hostHeader != "" {
		allowed = append(allowed, hostHeader)
	}
	allowed = append(allowed, a.CSRFAllowedDomains...)
	return VerifyRequestOrigin(originHeader, allowed)
}
