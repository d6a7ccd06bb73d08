package warden

import (
	"context"
	"fmt"
)

// Key is the in-memory view of a credential record.
type Key struct {
	ProviderID     string
	ProviderUserID string
	UserID         string
	HasPassword    bool
}

func keyFromRecord(record *KeyRecord) (*Key, error) {
	providerID, providerUserID, err := SplitKeyID(record.ID)
	if err != nil {
		return nil, err
	}
	return &Key{
		ProviderID:     providerID,
		ProviderUserID: providerUserID,
		UserID:         record.UserID,
		HasPassword:    record.HashedPassword != nil,
	}, nil
}

// CreateKey binds a new identity method to an existing user. password may be
// nil for provider-linked keys. Fails with ErrDuplicateKey when the
// composite identity already exists; the adapter's uniqueness constraint is
// the arbiter, so two concurrent creates cannot both win.
func (a *Auth) CreateKey(ctx context.Context, userID, providerID, providerUserID string, password *string) (*Key, error) {
	a.EnsureDefaults()
	record, err := a.newKeyRecord(userID, providerID, providerUserID, password)
	if err != nil {
		return nil, err
	}
	if err := a.Adapter.SetKey(ctx, record, nil); err != nil {
		return nil, fmt.Errorf("failed to persist key: %w", err)
	}
	return keyFromRecord(record)
}

// UseKey authenticates against a stored key and returns the owning user.
// ErrInvalidKeyID when the identity does not exist; ErrInvalidPassword when
// the password does not verify, when a password is supplied for a
// passwordless key, or when a password-bearing key is used without one.
func (a *Auth) UseKey(ctx context.Context, providerID, providerUserID string, password *string) (*User, error) {
	a.EnsureDefaults()
	keyID, err := KeyID(providerID, providerUserID)
	if err != nil {
		return nil, ErrInvalidKeyID
	}
	record, err := a.Adapter.GetKey(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key: %w", err)
	}
	if record == nil {
		return nil, ErrInvalidKeyID
	}

	switch {
	case record.HashedPassword != nil:
		if password == nil || !VerifyPassword(*record.HashedPassword, *password) {
			return nil, ErrInvalidPassword
		}
	case password != nil:
		// Passwordless key but a password was supplied.
		return nil, ErrInvalidPassword
	}

	user, err := a.Adapter.GetUser(ctx, record.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key owner: %w", err)
	}
	if user == nil {
		// Key row orphaned from its user; present it as a bad credential.
		return nil, ErrInvalidKeyID
	}
	return user, nil
}

// UpdateKeyPassword rehashes the key's password (or clears it when
// newPassword is nil) and invalidates every session of the owning user. A
// password change must not leave prior sessions live.
func (a *Auth) UpdateKeyPassword(ctx context.Context, providerID, providerUserID string, newPassword *string) (*Key, error) {
	a.EnsureDefaults()
	keyID, err := KeyID(providerID, providerUserID)
	if err != nil {
		return nil, ErrInvalidKeyID
	}
	record, err := a.Adapter.GetKey(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key: %w", err)
	}
	if record == nil {
		return nil, ErrInvalidKeyID
	}

	record.HashedPassword = nil
	if newPassword != nil {
		hashed, err := HashPassword(*newPassword)
		if err != nil {
			return nil, err
		}
		record.HashedPassword = &hashed
	}
	if err := a.Adapter.UpdateKey(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update key: %w", err)
	}
	if err := a.InvalidateAllUserSessions(ctx, record.UserID); err != nil {
		return nil, err
	}
	a.logger().Debug("key password updated", "user_id", record.UserID, "provider", providerID)
	return keyFromRecord(record)
}

// GetKey looks a key up by its provider identity. (nil, nil) when absent.
func (a *Auth) GetKey(ctx context.Context, providerID, providerUserID string) (*Key, error) {
	a.EnsureDefaults()
	keyID, err := KeyID(providerID, providerUserID)
	if err != nil {
		return nil, ErrInvalidKeyID
	}
	record, err := a.Adapter.GetKey(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	return keyFromRecord(record)
}

// DeleteKey removes one identity method, as on account unlinking.
func (a *Auth) DeleteKey(ctx context.Context, providerID, providerUserID string) error {
	a.EnsureDefaults()
	keyID, err := KeyID(providerID, providerUserID)
	if err != nil {
		return ErrInvalidKeyID
	}
	if err := a.Adapter.DeleteKey(ctx, keyID); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// DeleteKeysByUserID removes every key owned by userID, as on user deletion.
func (a *Auth) DeleteKeysByUserID(ctx context.Context, userID string) error {
	a.EnsureDefaults()
	if err := a.Adapter.DeleteUserKeys(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user keys: %w", err)
	}
	return nil
}

// CreateUserWithKey creates a user and its first key as one atomic write at
// the adapter boundary: both rows or neither. Used for password signups and
// first-time federated logins.
func (a *Auth) CreateUserWithKey(ctx context.Context, user *User, providerID, providerUserID string, password *string) (*User, error) {
	a.EnsureDefaults()
	record, err := a.newKeyRecord(user.ID, providerID, providerUserID, password)
	if err != nil {
		return nil, err
	}
	if err := a.Adapter.SetKey(ctx, record, user); err != nil {
		return nil, fmt.Errorf("failed to persist user and key: %w", err)
	}
	a.logger().Debug("user created", "user_id", user.ID, "provider", providerID)
	return user, nil
}

func (a *Auth) newKeyRecord(userID, providerID, providerUserID string, password *string) (*KeyRecord, error) {
	keyID, err := KeyID(providerID, providerUserID)
	if err != nil {
		return nil, err
	}
	record := &KeyRecord{ID: keyID, UserID: userID}
	if password != nil {
		hashed, err := HashPassword(*password)
		if err != nil {
			return nil, err
		}
		record.HashedPassword = &hashed
	}
	return record, nil
}
