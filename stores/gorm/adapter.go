// Package gorm provides a warden.Adapter backed by GORM, for hosts that
// keep auth records in a relational database alongside their own tables.
package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wardenauth/warden"
)

// Adapter implements warden.Adapter and the joined session+user fetch.
type Adapter struct {
	db *gorm.DB
}

// NewAdapter wraps an open GORM handle. Run AutoMigrate (or equivalent DDL)
// before first use.
func NewAdapter(db *gorm.DB) *Adapter {
	return &Adapter{db: db}
}

// AutoMigrate creates or updates the warden tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{}, &SessionModel{}, &KeyModel{})
}

func (a *Adapter) GetUser(ctx context.Context, userID string) (*warden.User, error) {
	var model UserModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (a *Adapter) GetSession(ctx context.Context, sessionID string) (*warden.SessionRecord, error) {
	var model SessionModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToRecord(), nil
}

// GetSessionAndUser resolves the session and its owner in one transaction,
// satisfying warden.SessionAndUserGetter.
func (a *Adapter) GetSessionAndUser(ctx context.Context, sessionID string) (*warden.SessionRecord, *warden.User, error) {
	var session SessionModel
	var user UserModel
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&session, "id = ?", sessionID).Error; err != nil {
			return err
		}
		return tx.First(&user, "id = ?", session.UserID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return session.ToRecord(), user.ToUser(), nil
}

func (a *Adapter) SetSession(ctx context.Context, session *warden.SessionRecord) error {
	err := a.db.WithContext(ctx).Create(sessionToModel(session)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return warden.ErrDuplicateSessionID
	}
	return err
}

func (a *Adapter) UpdateSession(ctx context.Context, session *warden.SessionRecord) error {
	return a.db.WithContext(ctx).Model(&SessionModel{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"expires_at": session.ExpiresAt,
			"attributes": JSONMap(session.Attributes),
		}).Error
}

func (a *Adapter) DeleteSession(ctx context.Context, sessionID string) error {
	return a.db.WithContext(ctx).Delete(&SessionModel{}, "id = ?", sessionID).Error
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) error {
	return a.db.WithContext(ctx).Delete(&SessionModel{}, "user_id = ?", userID).Error
}

func (a *Adapter) GetKey(ctx context.Context, keyID string) (*warden.KeyRecord, error) {
	var model KeyModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", keyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToRecord(), nil
}

func (a *Adapter) SetKey(ctx context.Context, key *warden.KeyRecord, user *warden.User) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if user != nil {
			if err := tx.Create(&UserModel{ID: user.ID, Attributes: user.Attributes}).Error; err != nil {
				return err
			}
		}
		return tx.Create(keyToModel(key)).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return warden.ErrDuplicateKey
	}
	return err
}

func (a *Adapter) UpdateKey(ctx context.Context, key *warden.KeyRecord) error {
	return a.db.WithContext(ctx).Model(&KeyModel{}).
		Where("id = ?", key.ID).
		Update("hashed_password", key.HashedPassword).Error
}

func (a *Adapter) DeleteKey(ctx context.Context, keyID string) error {
	return a.db.WithContext(ctx).Delete(&KeyModel{}, "id = ?", keyID).Error
}

func (a *Adapter) DeleteUserKeys(ctx context.Context, userID string) error {
	return a.db.WithContext(ctx).Delete(&KeyModel{}, "user_id = ?", userID).Error
}
