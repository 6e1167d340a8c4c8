package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "humanizone.auth.v1.AuthService"

// Full method names, as seen by interceptors.
const (
	MethodRegister    = "/" + ServiceName + "/Register"
	MethodLogin       = "/" + ServiceName + "/Login"
	MethodSocialLogin = "/" + ServiceName + "/SocialLogin"
	MethodRefresh     = "/" + ServiceName + "/Refresh"
	MethodRecertify   = "/" + ServiceName + "/Recertify"
	MethodCheckEmail  = "/" + ServiceName + "/CheckEmail"
)

// AuthServer is the server API of the auth service. Requests and responses
// are google.protobuf.Struct documents.
type AuthServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SocialLogin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recertify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckEmail(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(AuthServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// AuthServiceDesc plays the role of a generated descriptor.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, AuthServer.Register)},
		{MethodName: "Login", Handler: unary(MethodLogin, AuthServer.Login)},
		{MethodName: "SocialLogin", Handler: unary(MethodSocialLogin, AuthServer.SocialLogin)},
		{MethodName: "Refresh", Handler: unary(MethodRefresh, AuthServer.Refresh)},
		{MethodName: "Recertify", Handler: unary(MethodRecertify, AuthServer.Recertify)},
		{MethodName: "CheckEmail", Handler: unary(MethodCheckEmail, AuthServer.CheckEmail)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "humanizone/auth/v1/auth.proto",
}

func unary(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
