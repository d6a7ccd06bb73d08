package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/wardenauth/warden"
	"github.com/wardenauth/warden/stores/memory"
)

func newTestAuth(t *testing.T) (*warden.Auth, *warden.Session) {
	t.Helper()
	adapter := memory.NewAdapter()
	adapter.SeedUser(&warden.User{ID: "u1"})
	auth := warden.New(adapter)
	session, err := auth.CreateSession(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return auth, session
}

func incomingContext(sessionID string) context.Context {
	if sessionID == "" {
		return context.Background()
	}
	md := metadata.Pairs(DefaultMetadataKeySessionID, sessionID)
	return metadata.NewIncomingContext(context.Background(), md)
}

func invokeUnary(t *testing.T, interceptor grpc.UnaryServerInterceptor, ctx context.Context) (context.Context, error) {
	t.Helper()
	var handlerCtx context.Context
	_, err := interceptor(ctx, nil,
		&grpc.UnaryServerInfo{FullMethod: "/warden.Test/Do"},
		func(ctx context.Context, req any) (any, error) {
			handlerCtx = ctx
			return nil, nil
		})
	return handlerCtx, err
}

func TestUnaryInterceptorValidSession(t *testing.T) {
	auth, session := newTestAuth(t)
	interceptor := UnaryAuthInterceptor(auth, DefaultInterceptorConfig())

	handlerCtx, err := invokeUnary(t, interceptor, incomingContext(session.ID))
	if err != nil {
		t.Fatalf("Interceptor rejected a valid session: %v", err)
	}
	got := SessionFromContext(handlerCtx)
	if got == nil || got.UserID != "u1" {
		t.Errorf("Handler context session = %+v", got)
	}
	if UserIDFromContext(handlerCtx) != "u1" || !IsAuthenticated(handlerCtx) {
		t.Error("Context helpers disagree with the stored session")
	}
}

func TestUnaryInterceptorMissingSession(t *testing.T) {
	auth, _ := newTestAuth(t)
	interceptor := UnaryAuthInterceptor(auth, DefaultInterceptorConfig())

	_, err := invokeUnary(t, interceptor, incomingContext(""))
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("Status = %v, want Unauthenticated", err)
	}
}

func TestUnaryInterceptorInvalidSession(t *testing.T) {
	auth, _ := newTestAuth(t)
	interceptor := UnaryAuthInterceptor(auth, DefaultInterceptorConfig())

	_, err := invokeUnary(t, interceptor, incomingContext("no-such-session"))
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("Status = %v, want Unauthenticated", err)
	}
}

func TestUnaryInterceptorExpiredSession(t *testing.T) {
	auth, session := newTestAuth(t)
	auth.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	interceptor := UnaryAuthInterceptor(auth, DefaultInterceptorConfig())

	_, err := invokeUnary(t, interceptor, incomingContext(session.ID))
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("Status = %v, want Unauthenticated", err)
	}
}

func TestUnaryInterceptorPublicMethod(t *testing.T) {
	auth, _ := newTestAuth(t)
	config := NewPublicMethodsConfig("/warden.Test/Do")
	interceptor := UnaryAuthInterceptor(auth, config)

	handlerCtx, err := invokeUnary(t, interceptor, incomingContext(""))
	if err != nil {
		t.Fatalf("Public method rejected: %v", err)
	}
	if IsAuthenticated(handlerCtx) {
		t.Error("Anonymous public call reports authenticated")
	}
}

func TestUnaryInterceptorOptionalAuth(t *testing.T) {
	auth, session := newTestAuth(t)
	interceptor := UnaryAuthInterceptor(auth, OptionalAuthConfig())

	// Anonymous calls pass with no session on the context.
	handlerCtx, err := invokeUnary(t, interceptor, incomingContext(""))
	if err != nil {
		t.Fatalf("Optional auth rejected an anonymous call: %v", err)
	}
	if IsAuthenticated(handlerCtx) {
		t.Error("Anonymous call reports authenticated")
	}

	// Invalid sessions degrade to anonymous rather than failing.
	handlerCtx, err = invokeUnary(t, interceptor, incomingContext("no-such-session"))
	if err != nil {
		t.Fatalf("Optional auth rejected an invalid session: %v", err)
	}
	if IsAuthenticated(handlerCtx) {
		t.Error("Invalid session reports authenticated")
	}

	// Valid sessions are still resolved.
	handlerCtx, err = invokeUnary(t, interceptor, incomingContext(session.ID))
	if err != nil {
		t.Fatalf("Optional auth rejected a valid session: %v", err)
	}
	if UserIDFromContext(handlerCtx) != "u1" {
		t.Error("Valid session not placed on context")
	}
}

func TestUnaryInterceptorNilConfig(t *testing.T) {
	auth, session := newTestAuth(t)
	interceptor := UnaryAuthInterceptor(auth, nil)

	if _, err := invokeUnary(t, interceptor, incomingContext(session.ID)); err != nil {
		t.Errorf("Nil config did not default to requiring auth with the default key: %v", err)
	}
	if _, err := invokeUnary(t, interceptor, incomingContext("")); status.Code(err) != codes.Unauthenticated {
		t.Errorf("Nil config anonymous call = %v, want Unauthenticated", err)
	}
}

func TestUnaryInterceptorCustomMetadataKey(t *testing.T) {
	auth, session := newTestAuth(t)
	config := DefaultInterceptorConfig()
	config.MetadataKeySessionID = "x-auth-token"
	interceptor := UnaryAuthInterceptor(auth, config)

	md := metadata.Pairs("x-auth-token", session.ID)
	ctx := metadata.NewIncomingContext(context.Background(), md)
	handlerCtx, err := invokeUnary(t, interceptor, ctx)
	if err != nil {
		t.Fatalf("Custom key session rejected: %v", err)
	}
	if UserIDFromContext(handlerCtx) != "u1" {
		t.Error("Session not resolved from custom metadata key")
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestStreamInterceptor(t *testing.T) {
	auth, session := newTestAuth(t)
	interceptor := StreamAuthInterceptor(auth, DefaultInterceptorConfig())

	var handlerCtx context.Context
	err := interceptor(nil,
		&fakeServerStream{ctx: incomingContext(session.ID)},
		&grpc.StreamServerInfo{FullMethod: "/warden.Test/Stream"},
		func(srv any, stream grpc.ServerStream) error {
			handlerCtx = stream.Context()
			return nil
		})
	if err != nil {
		t.Fatalf("Stream interceptor rejected a valid session: %v", err)
	}
	if UserIDFromContext(handlerCtx) != "u1" {
		t.Error("Stream handler context missing the session")
	}

	err = interceptor(nil,
		&fakeServerStream{ctx: incomingContext("no-such-session")},
		&grpc.StreamServerInfo{FullMethod: "/warden.Test/Stream"},
		func(srv any, stream grpc.ServerStream) error { return nil })
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("Stream status = %v, want Unauthenticated", err)
	}
}

func TestSessionToOutgoingContext(t *testing.T) {
	ctx := SessionToOutgoingContext(context.Background(), "abc123")
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("No outgoing metadata")
	}
	if got := md.Get(DefaultMetadataKeySessionID); len(got) != 1 || got[0] != "abc123" {
		t.Errorf("Outgoing metadata = %v", got)
	}
}
