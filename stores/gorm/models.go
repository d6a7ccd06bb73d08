package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/wardenauth/warden"
)

// JSONMap stores host-defined attribute maps as a JSON column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// UserModel is the GORM model for users.
type UserModel struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Attributes JSONMap   `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "warden_users" }

func (m *UserModel) ToUser() *warden.User {
	return &warden.User{ID: m.ID, Attributes: m.Attributes}
}

// SessionModel is the GORM model for sessions.
type SessionModel struct {
	ID         string    `gorm:"primaryKey;size:64"`
	UserID     string    `gorm:"size:64;index"`
	ExpiresAt  time.Time `gorm:"index"`
	Attributes JSONMap   `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (SessionModel) TableName() string { return "warden_sessions" }

func (m *SessionModel) ToRecord() *warden.SessionRecord {
	return &warden.SessionRecord{
		ID:         m.ID,
		UserID:     m.UserID,
		ExpiresAt:  m.ExpiresAt,
		Attributes: m.Attributes,
	}
}

func sessionToModel(s *warden.SessionRecord) *SessionModel {
	return &SessionModel{
		ID:         s.ID,
		UserID:     s.UserID,
		ExpiresAt:  s.ExpiresAt,
		Attributes: s.Attributes,
	}
}

// KeyModel is the GORM model for keys. The primary key on the composite
// "provider:providerUserId" ID is the uniqueness constraint that arbitrates
// racing signups.
type KeyModel struct {
	ID             string    `gorm:"primaryKey;size:255"`
	UserID         string    `gorm:"size:64;index"`
	HashedPassword *string   `gorm:"size:512"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (KeyModel) TableName() string { return "warden_keys" }

func (m *KeyModel) ToRecord() *warden.KeyRecord {
	return &warden.KeyRecord{ID: m.ID, UserID: m.UserID, HashedPassword: m.HashedPassword}
}

func keyToModel(k *warden.KeyRecord) *KeyModel {
	return &KeyModel{ID: k.ID, UserID: k.UserID, HashedPassword: k.HashedPassword}
}
