package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wardenauth/warden"
)

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	*Config

	// RequireAuth when true rejects requests without a valid session.
	// When false, requests proceed and SessionFromContext returns nil.
	RequireAuth bool

	// PublicMethods are full method names ("/package.Service/Method") that
	// skip the auth requirement. Only consulted when RequireAuth is true.
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth everywhere.
func DefaultInterceptorConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig requires auth except for the listed methods.
func NewPublicMethodsConfig(publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig()
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig validates sessions when present but rejects nothing.
func OptionalAuthConfig() *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		RequireAuth:   false,
		PublicMethods: make(map[string]bool),
	}
}

func (c *InterceptorConfig) ensure() *InterceptorConfig {
	if c == nil {
		return DefaultInterceptorConfig()
	}
	if c.Config == nil {
		c.Config = DefaultConfig()
	}
	c.Config.EnsureDefaults()
	return c
}

// UnaryAuthInterceptor returns a unary interceptor that resolves the
// session ID in metadata to a live session. An invalid or missing session on
// a protected method yields codes.Unauthenticated; storage failures yield
// codes.Unavailable so clients can distinguish "log in again" from "retry".
func UnaryAuthInterceptor(auth *warden.Auth, config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = config.ensure()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, auth, config, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor is UnaryAuthInterceptor for streams.
func StreamAuthInterceptor(auth *warden.Auth, config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = config.ensure()
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), auth, config, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &sessionServerStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticate(ctx context.Context, auth *warden.Auth, config *InterceptorConfig, fullMethod string) (context.Context, error) {
	required := config.RequireAuth && !config.PublicMethods[fullMethod]

	sessionID := SessionIDFromMetadata(ctx, config.Config)
	if sessionID == "" {
		if required {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}

	session, err := auth.ValidateSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, warden.ErrInvalidSessionID) {
			if required {
				return nil, status.Error(codes.Unauthenticated, "invalid session")
			}
			return ctx, nil
		}
		return nil, status.Error(codes.Unavailable, "session validation failed")
	}
	return withSession(ctx, session), nil
}

// sessionServerStream overrides the stream context with the authenticated
// one.
type sessionServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *sessionServerStream) Context() context.Context { return s.ctx }
