package warden

import "errors"

// Typed errors surfaced by the engine. Hosts discriminate with errors.Is.
var (
	// ErrInvalidSessionID covers both unknown and expired sessions, so a
	// caller presenting a bad token cannot learn whether it ever existed.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrInvalidKeyID means no key exists for the given provider identity.
	ErrInvalidKeyID = errors.New("invalid key id")

	// ErrInvalidPassword means the key exists but the supplied password does
	// not verify, or a password was supplied for a key that has none.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrDuplicateKey means the composite provider:providerUserId identity
	// already belongs to a user.
	ErrDuplicateKey = errors.New("duplicate key id")

	// ErrDuplicateSessionID means the generated session ID collided with an
	// existing record.
	ErrDuplicateSessionID = errors.New("duplicate session id")

	// ErrInvalidState means the OAuth2 callback state did not match the one
	// issued with the authorization URL.
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrStorageUnavailable is returned by adapters that cannot reach their
	// backing store. Warden propagates it unchanged; it never retries.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
