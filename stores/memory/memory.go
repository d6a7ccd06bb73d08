// Package memory provides an in-process warden.Adapter. It enforces the
// same uniqueness semantics a database would, which makes it the reference
// store for tests and demos. Everything is lost on process exit.
package memory

import (
	"context"
	"sync"

	"github.com/wardenauth/warden"
)

// Adapter is a mutex-guarded in-memory store.
type Adapter struct {
	mu       sync.RWMutex
	users    map[string]*warden.User
	sessions map[string]*warden.SessionRecord
	keys     map[string]*warden.KeyRecord
}

// NewAdapter returns an empty store.
func NewAdapter() *Adapter {
	return &Adapter{
		users:    map[string]*warden.User{},
		sessions: map[string]*warden.SessionRecord{},
		keys:     map[string]*warden.KeyRecord{},
	}
}

// SeedUser inserts a user directly, for hosts that own user creation.
func (a *Adapter) SeedUser(user *warden.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[user.ID] = copyUser(user)
}

func (a *Adapter) GetUser(ctx context.Context, userID string) (*warden.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyUser(a.users[userID]), nil
}

func (a *Adapter) GetSession(ctx context.Context, sessionID string) (*warden.SessionRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copySession(a.sessions[sessionID]), nil
}

func (a *Adapter) GetSessionAndUser(ctx context.Context, sessionID string) (*warden.SessionRecord, *warden.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	session := a.sessions[sessionID]
	if session == nil {
		return nil, nil, nil
	}
	return copySession(session), copyUser(a.users[session.UserID]), nil
}

func (a *Adapter) SetSession(ctx context.Context, session *warden.SessionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.sessions[session.ID]; exists {
		return warden.ErrDuplicateSessionID
	}
	a.sessions[session.ID] = copySession(session)
	return nil
}

func (a *Adapter) UpdateSession(ctx context.Context, session *warden.SessionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.sessions[session.ID]; !exists {
		return nil
	}
	a.sessions[session.ID] = copySession(session)
	return nil
}

func (a *Adapter) DeleteSession(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
	return nil
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, session := range a.sessions {
		if session.UserID == userID {
			delete(a.sessions, id)
		}
	}
	return nil
}

func (a *Adapter) GetKey(ctx context.Context, keyID string) (*warden.KeyRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyKey(a.keys[keyID]), nil
}

func (a *Adapter) SetKey(ctx context.Context, key *warden.KeyRecord, user *warden.User) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.keys[key.ID]; exists {
		return warden.ErrDuplicateKey
	}
	// Single lock, so key and user land atomically.
	if user != nil {
		a.users[user.ID] = copyUser(user)
	}
	a.keys[key.ID] = copyKey(key)
	return nil
}

func (a *Adapter) UpdateKey(ctx context.Context, key *warden.KeyRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.keys[key.ID]; !exists {
		return nil
	}
	a.keys[key.ID] = copyKey(key)
	return nil
}

func (a *Adapter) DeleteKey(ctx context.Context, keyID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.keys, keyID)
	return nil
}

func (a *Adapter) DeleteUserKeys(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, key := range a.keys {
		if key.UserID == userID {
			delete(a.keys, id)
		}
	}
	return nil
}

// Copies keep callers from mutating store state through shared pointers.

func copyUser(u *warden.User) *warden.User {
	if u == nil {
		return nil
	}
	out := *u
	out.Attributes = copyAttrs(u.Attributes)
	return &out
}

func copySession(s *warden.SessionRecord) *warden.SessionRecord {
	if s == nil {
		return nil
	}
	out := *s
	out.Attributes = copyAttrs(s.Attributes)
	return &out
}

func copyKey(k *warden.KeyRecord) *warden.KeyRecord {
	if k == nil {
		return nil
	}
	out := *k
	if k.HashedPassword != nil {
		hashed := *k.HashedPassword
		out.HashedPassword = &hashed
	}
	return &out
}

func copyAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
