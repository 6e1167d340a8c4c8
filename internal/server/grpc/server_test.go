package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/dmitrijs2005/humanizone/internal/cryptox"
	"github.com/dmitrijs2005/humanizone/internal/logging"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/memory"
	"github.com/dmitrijs2005/humanizone/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, &fakeAuth{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &fakeAuth{}, nil)

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

// dialAuthService serves a real AuthService over an in-memory store and
// returns a client connection to it.
func dialAuthService(t *testing.T) *grpc.ClientConn {
	t.Helper()

	issuer := newIssuer(t, "access")
	hasher, err := cryptox.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	store := memory.NewInMemoryRepositoryManager()
	svc := services.NewAuthService(store, store, issuer, hasher, logging.Nop{})

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewGRPCServer("", logging.Nop{}, svc, issuer).Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func TestAuthService_EndToEnd(t *testing.T) {
	conn := dialAuthService(t)
	ctx := context.Background()

	_, err := invoke(ctx, conn, MethodRegister, map[string]any{"email": "a@x.com", "password": "pw123", "essentialAgree": true})
	require.NoError(t, err)

	_, err = invoke(ctx, conn, MethodRegister, map[string]any{"email": "a@x.com", "password": "pw123"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	session, err := invoke(ctx, conn, MethodLogin, map[string]any{"email": "a@x.com", "password": "pw123"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", session.GetFields()["userInfo"].GetStructValue().GetFields()["email"].GetStringValue())

	_, err = invoke(ctx, conn, MethodLogin, map[string]any{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "WRONG_PASSWORD", status.Convert(err).Message())

	oldRefresh := session.GetFields()["refreshToken"].GetStringValue()
	rotated, err := invoke(ctx, conn, MethodRefresh, map[string]any{"refreshToken": oldRefresh})
	require.NoError(t, err)
	_, err = invoke(ctx, conn, MethodRefresh, map[string]any{"refreshToken": oldRefresh})
	assert.Equal(t, "REFRESH_TOKEN_NOT_MATCH", status.Convert(err).Message())

	_, err = invoke(ctx, conn, MethodRecertify, map[string]any{"name": "Kim"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	access := rotated.GetFields()["accessToken"].GetStringValue()
	authed := metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, access)
	_, err = invoke(authed, conn, MethodRecertify, map[string]any{"name": "Kim"})
	require.NoError(t, err)

	after, err := invoke(ctx, conn, MethodLogin, map[string]any{"email": "a@x.com", "password": "pw123"})
	require.NoError(t, err)
	assert.Equal(t, "Kim", after.GetFields()["userInfo"].GetStructValue().GetFields()["name"].GetStringValue())

	exists, err := invoke(ctx, conn, MethodCheckEmail, map[string]any{"email": "a@x.com"})
	require.NoError(t, err)
	assert.True(t, exists.GetFields()["exists"].GetBoolValue())
}
