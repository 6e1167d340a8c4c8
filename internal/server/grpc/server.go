// Package grpc exposes the auth service over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/logging"
	"github.com/dmitrijs2005/humanizone/internal/server/auth"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/dmitrijs2005/humanizone/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// AuthService is the part of services.AuthService the transport calls.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegistrationResult, error)
	Login(ctx context.Context, email, password string) (*services.SessionResult, error)
	SocialLogin(ctx context.Context, email string, provider models.Provider) (*services.SessionResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.SessionResult, error)
	Recertify(ctx context.Context, userID string, patch models.AttributePatch) error
	CheckEmail(ctx context.Context, email string) (bool, error)
}

// AccessVerifier checks access tokens presented in metadata.
type AccessVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

type GRPCServer struct {
	address string
	auth    AuthService
	tokens  AccessVerifier
	logger  logging.Logger
}

var _ AuthServer = (*GRPCServer)(nil)

func NewGRPCServer(address string, l logging.Logger, svc AuthService, tokens AccessVerifier) *GRPCServer {
	return &GRPCServer{
		address: address,
		auth:    svc,
		tokens:  tokens,
		logger:  l.With("module", "grpc_server"),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	srv.RegisterService(&AuthServiceDesc, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc finished", "method", info.FullMethod, "elapsed", time.Since(start).String(), "code", status.Code(err).String())
	return resp, err
}
