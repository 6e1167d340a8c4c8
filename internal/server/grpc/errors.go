package grpc

import (
	"errors"

	"github.com/dmitrijs2005/humanizone/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC statuses. The message is always the
// stable error code; causes never reach the client.
func toStatus(err error) error {
	var e *services.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, string(services.CodeInternal))
	}

	code := codes.Internal
	switch e.Kind {
	case services.KindNotFound:
		code = codes.NotFound
	case services.KindAuthFailure:
		code = codes.Unauthenticated
	case services.KindConflict:
		code = codes.AlreadyExists
	}
	return status.Error(code, string(e.Code))
}
