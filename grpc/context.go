// Package grpc validates warden sessions on gRPC requests. Clients send the
// session ID as metadata; the interceptors resolve it through the engine and
// place the session on the handler context.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/wardenauth/warden"
)

// DefaultMetadataKeySessionID is the metadata key clients send the session
// ID under.
const DefaultMetadataKeySessionID = "x-session-id"

type sessionKey struct{}

// Config holds the metadata key configuration.
type Config struct {
	// MetadataKeySessionID overrides the metadata key the session ID is
	// read from. Defaults to "x-session-id".
	MetadataKeySessionID string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MetadataKeySessionID: DefaultMetadataKeySessionID}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeySessionID == "" {
		c.MetadataKeySessionID = DefaultMetadataKeySessionID
	}
}

// SessionIDFromMetadata extracts the raw session ID from incoming metadata.
// Returns empty string when absent; no validation happens here.
func SessionIDFromMetadata(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeySessionID); len(values) > 0 {
		return values[0]
	}
	return ""
}

// SessionToOutgoingContext attaches a session ID to outgoing metadata under
// the default key.
func SessionToOutgoingContext(ctx context.Context, sessionID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeySessionID, sessionID)
}

// SessionFromContext returns the session the interceptor validated, or nil.
func SessionFromContext(ctx context.Context) *warden.Session {
	session, _ := ctx.Value(sessionKey{}).(*warden.Session)
	return session
}

// UserIDFromContext returns the authenticated user's ID, or "".
func UserIDFromContext(ctx context.Context) string {
	if session := SessionFromContext(ctx); session != nil {
		return session.UserID
	}
	return ""
}

// IsAuthenticated reports whether the context carries a validated session.
func IsAuthenticated(ctx context.Context) bool {
	return SessionFromContext(ctx) != nil
}

func withSession(ctx context.Context, session *warden.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}
