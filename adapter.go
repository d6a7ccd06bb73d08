package warden

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// User is the host-owned account record. Warden reads the ID and carries the
// attributes through untouched.
type User struct {
	ID         string
	Attributes map[string]any
}

// SessionRecord is the persisted shape of a session. The Fresh flag on
// Session is derived during validation and never stored.
type SessionRecord struct {
	ID         string
	UserID     string
	ExpiresAt  time.Time
	Attributes map[string]any
}

// KeyRecord is the persisted shape of a key. HashedPassword is nil for keys
// whose identity method has no password (OAuth-only).
type KeyRecord struct {
	ID             string // "providerId:providerUserId"
	UserID         string
	HashedPassword *string
}

// Adapter is the storage contract warden consumes. Implementations hold all
// mutable state and are the single point of serialization: concurrency
// control (such as two signups racing for one key) is delegated to the
// store's uniqueness constraints and surfaced back as ErrDuplicateKey or
// ErrDuplicateSessionID.
//
// Lookups return (nil, nil) when no record exists. Warden turns those nils
// into its own typed errors; adapters should reserve errors for real
// failures (and may wrap ErrStorageUnavailable for connectivity problems).
type Adapter interface {
	GetUser(ctx context.Context, userID string) (*User, error)

	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)
	SetSession(ctx context.Context, session *SessionRecord) error
	UpdateSession(ctx context.Context, session *SessionRecord) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID string) error

	GetKey(ctx context.Context, keyID string) (*KeyRecord, error)
	// SetKey persists a key. When user is non-nil the user and key must be
	// written as one atomic unit: either both rows exist afterwards or
	// neither does. Warden performs no rollback of its own.
	SetKey(ctx context.Context, key *KeyRecord, user *User) error
	UpdateKey(ctx context.Context, key *KeyRecord) error
	DeleteKey(ctx context.Context, keyID string) error
	DeleteUserKeys(ctx context.Context, userID string) error
}

// SessionAndUserGetter is an optional joined fetch. Adapters backed by
// relational stores implement it so ValidateSession resolves the session and
// its owner in one round trip.
type SessionAndUserGetter interface {
	GetSessionAndUser(ctx context.Context, sessionID string) (*SessionRecord, *User, error)
}

// KeyID builds the composite key identity from a provider ID and the
// provider's user ID. The provider ID must not contain the ":" separator.
func KeyID(providerID, providerUserID string) (string, error) {
	if providerID == "" || strings.Contains(providerID, ":") {
		return "", fmt.Errorf("invalid provider id %q", providerID)
	}
	if providerUserID == "" {
		return "", fmt.Errorf("provider user id is empty")
	}
	return providerID + ":" + providerUserID, nil
}

// SplitKeyID is the inverse of KeyID. The provider user ID may itself
// contain ":" (emails cannot, but provider IDs are opaque), so only the
// first separator splits.
func SplitKeyID(keyID string) (providerID, providerUserID string, err error) {
	providerID, providerUserID, ok := strings.Cut(keyID, ":")
	if !ok || providerID == "" || providerUserID == "" {
		return "", "", fmt.Errorf("malformed key id %q", keyID)
	}
	return providerID, providerUserID, nil
}
