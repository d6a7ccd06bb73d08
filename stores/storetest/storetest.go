// Package storetest is a conformance suite for warden.Adapter
// implementations. Each store's tests call Run with a factory; the suite
// exercises the contract every adapter must honor: nil-nil lookups for
// absent records, uniqueness surfaced as the typed duplicate errors, and
// atomic user-plus-key writes.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wardenauth/warden"
)

// Run executes the conformance suite. newAdapter must return an empty store.
func Run(t *testing.T, newAdapter func(t *testing.T) warden.Adapter) {
	tests := []struct {
		name string
		fn   func(t *testing.T, adapter warden.Adapter)
	}{
		{"AbsentLookups", testAbsentLookups},
		{"SessionRoundTrip", testSessionRoundTrip},
		{"SessionDuplicate", testSessionDuplicate},
		{"SessionUpdate", testSessionUpdate},
		{"SessionDelete", testSessionDelete},
		{"SessionDeleteByUser", testSessionDeleteByUser},
		{"KeyRoundTrip", testKeyRoundTrip},
		{"KeyDuplicate", testKeyDuplicate},
		{"KeyAtomicUserCreate", testKeyAtomicUserCreate},
		{"KeyUpdate", testKeyUpdate},
		{"KeyDelete", testKeyDelete},
		{"KeyDeleteByUser", testKeyDeleteByUser},
		{"SessionAndUser", testSessionAndUser},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.fn(t, newAdapter(t))
		})
	}
}

// seedUser creates a user through the adapter's own atomic write path, which
// works for stores with and without a separate seeding hook.
func seedUser(t *testing.T, adapter warden.Adapter, userID string) {
	t.Helper()
	key := &warden.KeyRecord{ID: "seed:" + userID, UserID: userID}
	if err := adapter.SetKey(context.Background(), key, &warden.User{ID: userID}); err != nil {
		t.Fatalf("Failed to seed user %q: %v", userID, err)
	}
}

func newSessionRecord(id, userID string) *warden.SessionRecord {
	return &warden.SessionRecord{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		Attributes: map[string]any{
			"ip": "10.0.0.1",
		},
	}
}

func testAbsentLookups(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	if user, err := adapter.GetUser(ctx, "nope"); user != nil || err != nil {
		t.Errorf("GetUser(absent) = (%v, %v), want (nil, nil)", user, err)
	}
	if session, err := adapter.GetSession(ctx, "nope"); session != nil || err != nil {
		t.Errorf("GetSession(absent) = (%v, %v), want (nil, nil)", session, err)
	}
	if key, err := adapter.GetKey(ctx, "password:nope"); key != nil || err != nil {
		t.Errorf("GetKey(absent) = (%v, %v), want (nil, nil)", key, err)
	}
}

func testSessionRoundTrip(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")

	in := newSessionRecord("s1", "u1")
	if err := adapter.SetSession(ctx, in); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	out, err := adapter.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if out == nil || out.ID != "s1" || out.UserID != "u1" {
		t.Fatalf("GetSession = %+v", out)
	}
	if !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", out.ExpiresAt, in.ExpiresAt)
	}
	if out.Attributes["ip"] != "10.0.0.1" {
		t.Errorf("Attributes = %v", out.Attributes)
	}
}

func testSessionDuplicate(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")

	if err := adapter.SetSession(ctx, newSessionRecord("s1", "u1")); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if err := adapter.SetSession(ctx, newSessionRecord("s1", "u1")); !errors.Is(err, warden.ErrDuplicateSessionID) {
		t.Errorf("Duplicate SetSession = %v, want ErrDuplicateSessionID", err)
	}
}

func testSessionUpdate(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")

	record := newSessionRecord("s1", "u1")
	if err := adapter.SetSession(ctx, record); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	record.ExpiresAt = record.ExpiresAt.Add(24 * time.Hour)
	if err := adapter.UpdateSession(ctx, record); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	out, err := adapter.GetSession(ctx, "s1")
	if err != nil || out == nil {
		t.Fatalf("GetSession after update = (%v, %v)", out, err)
	}
	if !out.ExpiresAt.Equal(record.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", out.ExpiresAt, record.ExpiresAt)
	}
}

func testSessionDelete(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")

	if err := adapter.SetSession(ctx, newSessionRecord("s1", "u1")); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}
	if err := adapter.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if session, err := adapter.GetSession(ctx, "s1"); session != nil || err != nil {
		t.Errorf("GetSession after delete = (%v, %v), want (nil, nil)", session, err)
	}
	// Deleting an absent session is not an error.
	if err := adapter.DeleteSession(ctx, "s1"); err != nil {
		t.Errorf("DeleteSession(absent) = %v", err)
	}
}

func testSessionDeleteByUser(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")
	seedUser(t, adapter, "u2")

	adapter.SetSession(ctx, newSessionRecord("s1", "u1"))
	adapter.SetSession(ctx, newSessionRecord("s2", "u1"))
	adapter.SetSession(ctx, newSessionRecord("s3", "u2"))

	if err := adapter.DeleteUserSessions(ctx, "u1"); err != nil {
		t.Fatalf("DeleteUserSessions failed: %v", err)
	}
	for _, id := range []string{"s1", "s2"} {
		if session, _ := adapter.GetSession(ctx, id); session != nil {
			t.Errorf("u1 session %q survived", id)
		}
	}
	if session, _ := adapter.GetSession(ctx, "s3"); session == nil {
		t.Error("u2 session was collateral damage")
	}
}

func testKeyRoundTrip(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")

	hash := "s2:deadbeef:cafe"
	in := &warden.KeyRecord{ID: "password:a@x.com", UserID: "u1", HashedPassword: &hash}
	if err := adapter.SetKey(ctx, in, nil); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	out, err := adapter.GetKey(ctx, "password:a@x.com")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if out == nil || out.UserID != "u1" {
		t.Fatalf("GetKey = %+v", out)
	}
	if out.HashedPassword == nil || *out.HashedPassword != hash {
		t.Errorf("HashedPassword = %v, want %q", out.HashedPassword, hash)
	}
}

func testKeyDuplicate(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")
	seedUser(t, adapter, "u2")

	if err := adapter.SetKey(ctx, &warden.KeyRecord{ID: "password:a@x.com", UserID: "u1"}, nil); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	err := adapter.SetKey(ctx, &warden.KeyRecord{ID: "password:a@x.com", UserID: "u2"}, nil)
	if !errors.Is(err, warden.ErrDuplicateKey) {
		t.Errorf("Duplicate SetKey = %v, want ErrDuplicateKey", err)
	}
	// The original binding is untouched.
	out, _ := adapter.GetKey(ctx, "password:a@x.com")
	if out == nil || out.UserID != "u1" {
		t.Errorf("Key rebound by losing write: %+v", out)
	}
}

func testKeyAtomicUserCreate(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()

	key := &warden.KeyRecord{ID: "password:a@x.com", UserID: "u1"}
	user := &warden.User{ID: "u1", Attributes: map[string]any{"name": "alice"}}
	if err := adapter.SetKey(ctx, key, user); err != nil {
		t.Fatalf("Atomic SetKey failed: %v", err)
	}
	gotUser, err := adapter.GetUser(ctx, "u1")
	if err != nil || gotUser == nil {
		t.Fatalf("GetUser after atomic SetKey = (%v, %v)", gotUser, err)
	}
	if gotUser.Attributes["name"] != "alice" {
		t.Errorf("User attributes = %v", gotUser.Attributes)
	}

	// Losing the key race must not leave the new user behind.
	losing := &warden.KeyRecord{ID: "password:a@x.com", UserID: "u2"}
	err = adapter.SetKey(ctx, losing, &warden.User{ID: "u2"})
	if !errors.Is(err, warden.ErrDuplicateKey) {
		t.Fatalf("Conflicting atomic SetKey = %v, want ErrDuplicateKey", err)
	}
	if u2, _ := adapter.GetUser(ctx, "u2"); u2 != nil {
		t.Error("Losing atomic SetKey persisted its user")
	}
}

func testKeyUpdate(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")

	if err := adapter.SetKey(ctx, &warden.KeyRecord{ID: "password:a@x.com", UserID: "u1"}, nil); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	hash := "s2:beef:feed"
	if err := adapter.UpdateKey(ctx, &warden.KeyRecord{ID: "password:a@x.com", UserID: "u1", HashedPassword: &hash}); err != nil {
		t.Fatalf("UpdateKey failed: %v", err)
	}
	out, _ := adapter.GetKey(ctx, "password:a@x.com")
	if out == nil || out.HashedPassword == nil || *out.HashedPassword != hash {
		t.Errorf("Key after update = %+v", out)
	}
}

func testKeyDelete(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")

	if err := adapter.SetKey(ctx, &warden.KeyRecord{ID: "password:a@x.com", UserID: "u1"}, nil); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}
	if err := adapter.DeleteKey(ctx, "password:a@x.com"); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}
	if key, err := adapter.GetKey(ctx, "password:a@x.com"); key != nil || err != nil {
		t.Errorf("GetKey after delete = (%v, %v), want (nil, nil)", key, err)
	}
}

func testKeyDeleteByUser(t *testing.T, adapter warden.Adapter) {
	ctx := context.Background()
	seedUser(t, adapter, "u1")
	seedUser(t, adapter, "u2")

	adapter.SetKey(ctx, &warden.KeyRecord{ID: "password:a@x.com", UserID: "u1"}, nil)
	adapter.SetKey(ctx, &warden.KeyRecord{ID: "github:981234", UserID: "u1"}, nil)
	adapter.SetKey(ctx, &warden.KeyRecord{ID: "password:b@x.com", UserID: "u2"}, nil)

	if err := adapter.DeleteUserKeys(ctx, "u1"); err != nil {
		t.Fatalf("DeleteUserKeys failed: %v", err)
	}
	for _, id := range []string{"password:a@x.com", "github:981234"} {
		if key, _ := adapter.GetKey(ctx, id); key != nil {
			t.Errorf("u1 key %q survived", id)
		}
	}
	if key, _ := adapter.GetKey(ctx, "password:b@x.com"); key == nil {
		t.Error("u2 key was collateral damage")
	}
}

func testSessionAndUser(t *testing.T, adapter warden.Adapter) {
	joined, ok := adapter.(warden.SessionAndUserGetter)
	if !ok {
		t.Skip("adapter has no joined fetch")
	}
	ctx := context.Background()
	seedUser(t, adapter, "u1")
	if err := adapter.SetSession(ctx, newSessionRecord("s1", "u1")); err != nil {
		t.Fatalf("SetSession failed: %v", err)
	}

	session, user, err := joined.GetSessionAndUser(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionAndUser failed: %v", err)
	}
	if session == nil || session.ID != "s1" || user == nil || user.ID != "u1" {
		t.Errorf("GetSessionAndUser = (%+v, %+v)", session, user)
	}

	session, user, err = joined.GetSessionAndUser(ctx, "absent")
	if session != nil || user != nil || err != nil {
		t.Errorf("GetSessionAndUser(absent) = (%v, %v, %v), want all nil", session, user, err)
	}
}
