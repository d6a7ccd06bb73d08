package warden

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Session is the validated, in-memory view of a session.
type Session struct {
	ID         string
	UserID     string
	ExpiresAt  time.Time
	Attributes map[string]any

	// Fresh is true when this validation call (or CreateSession) just set
	// the expiry. Callers must rewrite the session cookie when Fresh.
	Fresh bool

	// User is the owning user when the adapter supports the joined fetch,
	// nil otherwise.
	User *User
}

// CreateSession generates a session ID, computes the expiry from the
// configured lifetime, persists the record and returns the session marked
// fresh.
func (a *Auth) CreateSession(ctx context.Context, userID string, attributes map[string]any) (*Session, error) {
	a.EnsureDefaults()
	record := &SessionRecord{
		ID:         GenerateID(sessionIDLength),
		UserID:     userID,
		ExpiresAt:  a.Now().Add(a.SessionLifetime),
		Attributes: attributes,
	}
	if err := a.Adapter.SetSession(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	a.logger().Debug("session created", "user_id", userID)
	return &Session{
		ID:         record.ID,
		UserID:     record.UserID,
		ExpiresAt:  record.ExpiresAt,
		Attributes: record.Attributes,
		Fresh:      true,
	}, nil
}

// ValidateSession resolves a session ID to a live session. Unknown IDs and
// expired sessions both return ErrInvalidSessionID — a caller presenting a
// bad token learns nothing about whether the session ever existed. A session
// inside the renewal window gets its expiry extended, the record updated,
// and comes back marked Fresh.
func (a *Auth) ValidateSession(ctx context.Context, sessionID string) (*Session, error) {
	a.EnsureDefaults()
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}

	record, user, err := a.fetchSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrInvalidSessionID
	}

	now := a.Now()
	if !now.Before(record.ExpiresAt) {
		// Reap the dead record; failure to delete does not change the
		// outcome for the caller.
		if err := a.Adapter.DeleteSession(ctx, sessionID); err != nil {
			a.logger().Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrInvalidSessionID
	}

	session := &Session{
		ID:         record.ID,
		UserID:     record.UserID,
		ExpiresAt:  record.ExpiresAt,
		Attributes: record.Attributes,
		User:       user,
	}

	if record.ExpiresAt.Sub(now) <= a.RenewalWindow {
		record.ExpiresAt = now.Add(a.SessionLifetime)
		if err := a.Adapter.UpdateSession(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to renew session: %w", err)
		}
		session.ExpiresAt = record.ExpiresAt
		session.Fresh = true
		a.logger().Debug("session renewed", "user_id", record.UserID)
	}

	return session, nil
}

// InvalidateSession hard-deletes a session. Deleting an unknown session is
// not an error.
func (a *Auth) InvalidateSession(ctx context.Context, sessionID string) error {
	a.EnsureDefaults()
	if err := a.Adapter.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAllUserSessions deletes every session owned by userID. It is
// invoked on every password change so sessions established under the old
// credential do not stay live.
func (a *Auth) InvalidateAllUserSessions(ctx context.Context, userID string) error {
	a.EnsureDefaults()
	if err := a.Adapter.DeleteUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	a.logger().Debug("all sessions invalidated", "user_id", userID)
	return nil
}

// GetUser fetches a user record by ID, returning ErrInvalidKeyID-style nil
// semantics: (nil, nil) means no such user.
func (a *Auth) GetUser(ctx context.Context, userID string) (*User, error) {
	a.EnsureDefaults()
	return a.Adapter.GetUser(ctx, userID)
}

// fetchSession uses the joined fetch when the adapter provides one.
func (a *Auth) fetchSession(ctx context.Context, sessionID string) (*SessionRecord, *User, error) {
	if joined, ok := a.Adapter.(SessionAndUserGetter); ok {
		record, user, err := joined.GetSessionAndUser(ctx, sessionID)
		if err != nil {
			if errors.Is(err, ErrInvalidSessionID) {
				return nil, nil, ErrInvalidSessionID
			}
			return nil, nil, fmt.Errorf("failed to fetch session: %w", err)
		}
		return record, user, nil
	}
	record, err := a.Adapter.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return record, nil, nil
}
