package grpc

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/dmitrijs2005/humanizone/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, password := stringField(req, "email"), stringField(req, "password")
	if email == "" || password == "" {
		return nil, missing("email", "password")
	}

	res, err := s.auth.Register(ctx, services.RegisterInput{
		Email:    email,
		Password: password,
		Agreements: models.Agreements{
			Essential:         boolField(req, "essentialAgree"),
			CustomizedService: boolField(req, "customizedServiceAgree"),
			Marketing:         boolField(req, "marketingAgree"),
		},
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{"userId": res.UserID, "message": res.Message})
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, password := stringField(req, "email"), stringField(req, "password")
	if email == "" || password == "" {
		return nil, missing("email", "password")
	}

	res, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, toStatus(err)
	}
	return sessionStruct(res)
}

func (s *GRPCServer) SocialLogin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, raw := stringField(req, "email"), stringField(req, "provider")
	if email == "" || raw == "" {
		return nil, missing("email", "provider")
	}

	// unknown names are passed through so the service reports the failure
	provider, err := models.ParseProvider(raw)
	if err != nil {
		provider = models.Provider(raw)
	}

	res, err := s.auth.SocialLogin(ctx, email, provider)
	if err != nil {
		return nil, toStatus(err)
	}
	return sessionStruct(res)
}

func (s *GRPCServer) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := stringField(req, "refreshToken")
	if token == "" {
		return nil, missing("refreshToken")
	}

	res, err := s.auth.Refresh(ctx, token)
	if err != nil {
		return nil, toStatus(err)
	}
	return sessionStruct(res)
}

func (s *GRPCServer) Recertify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	patch := models.AttributePatch{
		Name:  optionalString(req, "name"),
		Phone: optionalString(req, "phone"),
		Birth: optionalString(req, "birth"),
	}
	if err := s.auth.Recertify(ctx, userID, patch); err != nil {
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{"message": common.SuccessMessage})
}

func (s *GRPCServer) CheckEmail(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, "email")
	if email == "" {
		return nil, missing("email")
	}

	exists, err := s.auth.CheckEmail(ctx, email)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"exists": exists})
}

func sessionStruct(res *services.SessionResult) (*structpb.Struct, error) {
	// round-trip through JSON so the field names follow the json tags
	raw, err := json.Marshal(res.User)
	if err != nil {
		return nil, status.Error(codes.Internal, string(services.CodeInternal))
	}
	var info map[string]any
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, status.Error(codes.Internal, string(services.CodeInternal))
	}

	return structpb.NewStruct(map[string]any{
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"userInfo":     info,
	})
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func boolField(req *structpb.Struct, name string) bool {
	return req.GetFields()[name].GetBoolValue()
}

func optionalString(req *structpb.Struct, name string) *string {
	v, ok := req.GetFields()[name]
	if !ok {
		return nil
	}
	if _, isString := v.GetKind().(*structpb.Value_StringValue); !isString {
		return nil
	}
	s := v.GetStringValue()
	return &s
}

func missing(fields ...string) error {
	msg := "required: " + fields[0]
	for _, f := range fields[1:] {
		msg += ", " + f
	}
	return status.Error(codes.InvalidArgument, msg)
}
