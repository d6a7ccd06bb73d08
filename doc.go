// Package warden is an embeddable authentication core for Go applications.
//
// Warden manages server-side sessions, verifies long-term credentials, and
// drives the OAuth2 authorization-code exchange used to federate identity
// with third-party providers. It is consumed by HTTP-serving hosts, which
// supply the storage layer (an Adapter) and the request/response transport.
//
// # Architecture
//
// User: an account owned by the host application. Warden never interprets a
// user's attributes; it only tracks the opaque user ID.
//
// Session: a server-side record binding a high-entropy session ID to a user,
// with an absolute expiry. Sessions close to expiry are renewed during
// validation and come back marked fresh, signaling the caller to rewrite the
// session cookie.
//
// Key: a credential record binding one identity method to a user. A key is
// identified by "providerId:providerUserId" — for example
// "password:alice@example.com" or "github:981234" — and that composite ID is
// globally unique. Password-type keys carry a scrypt hash; provider-linked
// keys carry none.
//
// # Basic Usage
//
// Wire an adapter and create the engine:
//
//	adapter := memory.NewAdapter()
//	auth := warden.New(adapter)
//
// Authenticate with a password key and start a session:
//
//	user, err := auth.UseKey(ctx, "password", email, &password)
//	if err != nil {
//	    // warden.ErrInvalidKeyID or warden.ErrInvalidPassword
//	}
//	session, err := auth.CreateSession(ctx, user.ID, nil)
//	http.SetCookie(w, auth.Cookies.CreateSessionCookie(session.ID, session.ExpiresAt))
//
// Validate on later requests:
//
//	session, err := auth.ValidateSession(ctx, sessionID)
//	if err != nil {
//	    // no session: absent, expired and garbage all look the same
//	}
//	if session.Fresh {
//	    // expiry was extended; rewrite the cookie
//	}
//
// # Federation
//
// The oauth2 subpackage implements the shared authorization-code flow once,
// parameterized by a small Provider description (endpoints, scopes, whether
// PKCE is used). See the oauth2 package documentation.
//
// # Storage
//
// Warden is stateless; all mutable state lives behind the Adapter interface.
// Reference adapters live in stores/memory (tests, demos), stores/fs
// (JSON files, small deployments) and stores/gorm (relational databases).
// Production hosts typically implement Adapter against their own database.
//
// # Security
//
// Session IDs are 40-character cryptographically secure random strings.
// Passwords are NFKC-normalized and hashed with scrypt (N=16384, r=16, p=1);
// a legacy two-part hash format is still verified for records that predate
// the versioned format. All secret comparisons are constant-time. Cross-site
// request forgery is covered twice: an Origin allow-list check for
// state-mutating requests, and a one-time state value (optionally with PKCE)
// for the OAuth2 redirect round-trip.
package warden
