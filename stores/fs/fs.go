// Package fs provides a warden.Adapter that stores users, sessions and keys
// as JSON files under a storage directory. It suits development and small
// single-process deployments; anything needing real concurrency guarantees
// across processes should use a database-backed adapter.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wardenauth/warden"
)

// Adapter stores one JSON file per record under
// <root>/{users,sessions,keys}/<id>.json. A process-wide mutex provides the
// uniqueness guarantees the storage contract requires.
type Adapter struct {
	StoragePath string

	mu sync.Mutex
}

// NewAdapter returns an adapter rooted at storagePath. Directories are
// created lazily on first write.
func NewAdapter(storagePath string) *Adapter {
	return &Adapter{StoragePath: storagePath}
}

type userFile struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type sessionFile struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	ExpiresAt  time.Time      `json:"expires_at"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type keyFile struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	HashedPassword *string `json:"hashed_password,omitempty"`
}

func (a *Adapter) userPath(userID string) string {
	return filepath.Join(a.StoragePath, "users", encodeID(userID)+".json")
}

func (a *Adapter) sessionPath(sessionID string) string {
	return filepath.Join(a.StoragePath, "sessions", encodeID(sessionID)+".json")
}

func (a *Adapter) keyPath(keyID string) string {
	return filepath.Join(a.StoragePath, "keys", encodeID(keyID)+".json")
}

func (a *Adapter) GetUser(ctx context.Context, userID string) (*warden.User, error) {
	var f userFile
	ok, err := readJSON(a.userPath(userID), &f)
	if err != nil || !ok {
		return nil, err
	}
	return &warden.User{ID: f.ID, Attributes: f.Attributes}, nil
}

func (a *Adapter) GetSession(ctx context.Context, sessionID string) (*warden.SessionRecord, error) {
	var f sessionFile
	ok, err := readJSON(a.sessionPath(sessionID), &f)
	if err != nil || !ok {
		return nil, err
	}
	return &warden.SessionRecord{ID: f.ID, UserID: f.UserID, ExpiresAt: f.ExpiresAt, Attributes: f.Attributes}, nil
}

func (a *Adapter) SetSession(ctx context.Context, session *warden.SessionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	path := a.sessionPath(session.ID)
	if _, err := os.Stat(path); err == nil {
		return warden.ErrDuplicateSessionID
	}
	return writeJSON(path, sessionFile{
		ID:         session.ID,
		UserID:     session.UserID,
		ExpiresAt:  session.ExpiresAt,
		Attributes: session.Attributes,
	})
}

func (a *Adapter) UpdateSession(ctx context.Context, session *warden.SessionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	path := a.sessionPath(session.ID)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return writeJSON(path, sessionFile{
		ID:         session.ID,
		UserID:     session.UserID,
		ExpiresAt:  session.ExpiresAt,
		Attributes: session.Attributes,
	})
}

func (a *Adapter) DeleteSession(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return removeFile(a.sessionPath(sessionID))
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deleteWhere(filepath.Join(a.StoragePath, "sessions"), func(data []byte) bool {
		var f sessionFile
		return json.Unmarshal(data, &f) == nil && f.UserID == userID
	})
}

func (a *Adapter) GetKey(ctx context.Context, keyID string) (*warden.KeyRecord, error) {
	var f keyFile
	ok, err := readJSON(a.keyPath(keyID), &f)
	if err != nil || !ok {
		return nil, err
	}
	return &warden.KeyRecord{ID: f.ID, UserID: f.UserID, HashedPassword: f.HashedPassword}, nil
}

func (a *Adapter) SetKey(ctx context.Context, key *warden.KeyRecord, user *warden.User) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	keyPath := a.keyPath(key.ID)
	if _, err := os.Stat(keyPath); err == nil {
		return warden.ErrDuplicateKey
	}
	if user != nil {
		now := time.Now()
		if err := writeJSON(a.userPath(user.ID), userFile{
			ID:         user.ID,
			Attributes: user.Attributes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}); err != nil {
			return err
		}
	}
	if err := writeJSON(keyPath, keyFile{ID: key.ID, UserID: key.UserID, HashedPassword: key.HashedPassword}); err != nil {
		// Keep user-and-key atomic: undo the user write if the key failed.
		if user != nil {
			_ = removeFile(a.userPath(user.ID))
		}
		return err
	}
	return nil
}

func (a *Adapter) UpdateKey(ctx context.Context, key *warden.KeyRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	path := a.keyPath(key.ID)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return writeJSON(path, keyFile{ID: key.ID, UserID: key.UserID, HashedPassword: key.HashedPassword})
}

func (a *Adapter) DeleteKey(ctx context.Context, keyID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return removeFile(a.keyPath(keyID))
}

func (a *Adapter) DeleteUserKeys(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deleteWhere(filepath.Join(a.StoragePath, "keys"), func(data []byte) bool {
		var f keyFile
		return json.Unmarshal(data, &f) == nil && f.UserID == userID
	})
}

func (a *Adapter) deleteWhere(dir string, match func(data []byte) bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if match(data) {
			if err := removeFile(path); err != nil {
				return err
			}
		}
	}
	return nil
}

// encodeID keeps record IDs (emails, "provider:id" composites) safe as file
// names. The underscore is escaped too, so no two distinct IDs share a file:
// "a:b" and "a_c_b" encode to "a_c_b" and "a__c__b".
func encodeID(id string) string {
	replacer := strings.NewReplacer("_", "__", ":", "_c_", "/", "_s_", "\\", "_b_")
	return replacer.Replace(id)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("corrupt record %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, record any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

// writeAtomicFile writes data via a temp file and rename, so a crash never
// leaves a half-written record.
func writeAtomicFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
