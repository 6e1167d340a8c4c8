package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/dmitrijs2005/humanizone/internal/logging"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/dmitrijs2005/humanizone/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeAuth struct {
	gotRegister  services.RegisterInput
	gotProvider  models.Provider
	gotUserID    string
	gotPatch     models.AttributePatch
	session      *services.SessionResult
	exists       bool
	err          error
	recertifyErr error
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) (*services.RegistrationResult, error) {
	f.gotRegister = in
	if f.err != nil {
		return nil, f.err
	}
	return &services.RegistrationResult{UserID: "u1", Message: common.SuccessMessage}, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (*services.SessionResult, error) {
	return f.session, f.err
}

func (f *fakeAuth) SocialLogin(_ context.Context, _ string, p models.Provider) (*services.SessionResult, error) {
	f.gotProvider = p
	return f.session, f.err
}

func (f *fakeAuth) Refresh(context.Context, string) (*services.SessionResult, error) {
	return f.session, f.err
}

func (f *fakeAuth) Recertify(_ context.Context, userID string, patch models.AttributePatch) error {
	f.gotUserID, f.gotPatch = userID, patch
	return f.recertifyErr
}

func (f *fakeAuth) CheckEmail(context.Context, string) (bool, error) {
	return f.exists, f.err
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestRegister_MapsRequest(t *testing.T) {
	fa := &fakeAuth{}
	s := NewGRPCServer("", logging.Nop{}, fa, nil)

	resp, err := s.Register(context.Background(), mustStruct(t, map[string]any{
		"email":          "a@x.com",
		"password":       "pw123",
		"essentialAgree": true,
		"marketingAgree": true,
	}))
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", fa.gotRegister.Email)
	assert.Equal(t, "pw123", fa.gotRegister.Password)
	assert.Equal(t, models.Agreements{Essential: true, Marketing: true}, fa.gotRegister.Agreements)
	assert.Equal(t, "u1", resp.GetFields()["userId"].GetStringValue())
	assert.Equal(t, "success", resp.GetFields()["message"].GetStringValue())
}

func TestHandlers_MissingFields(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, &fakeAuth{}, nil)
	ctx := context.Background()
	empty := &structpb.Struct{}

	calls := map[string]func() error{
		"register":     func() error { _, err := s.Register(ctx, empty); return err },
		"login":        func() error { _, err := s.Login(ctx, empty); return err },
		"social login": func() error { _, err := s.SocialLogin(ctx, empty); return err },
		"refresh":      func() error { _, err := s.Refresh(ctx, empty); return err },
		"check email":  func() error { _, err := s.CheckEmail(ctx, empty); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, codes.InvalidArgument, status.Code(call()))
		})
	}
}

func TestLogin_ResponseShape(t *testing.T) {
	fa := &fakeAuth{session: &services.SessionResult{
		AccessToken:  "at",
		RefreshToken: "rt",
		User: models.UserInfo{
			ID:         "u1",
			Email:      "a@x.com",
			Provider:   models.ProviderLocal,
			Agreements: models.Agreements{Essential: true},
			Status:     models.UserStatusActive,
			Profile:    &models.Profile{Nickname: "kim"},
		},
	}}
	s := NewGRPCServer("", logging.Nop{}, fa, nil)

	resp, err := s.Login(context.Background(), mustStruct(t, map[string]any{"email": "a@x.com", "password": "pw"}))
	require.NoError(t, err)

	fields := resp.GetFields()
	assert.Equal(t, "at", fields["accessToken"].GetStringValue())
	assert.Equal(t, "rt", fields["refreshToken"].GetStringValue())

	info := fields["userInfo"].GetStructValue().GetFields()
	assert.Equal(t, "u1", info["id"].GetStringValue())
	assert.Equal(t, "a@x.com", info["email"].GetStringValue())
	assert.Equal(t, "Local", info["provider"].GetStringValue())
	assert.Equal(t, "Active", info["userStatus"].GetStringValue())
	assert.True(t, info["agreements"].GetStructValue().GetFields()["essentialAgree"].GetBoolValue())
	assert.Equal(t, "kim", info["profile"].GetStructValue().GetFields()["nickname"].GetStringValue())
	assert.NotContains(t, info, "passwordHash")
}

func TestSocialLogin_ProviderParsing(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Provider
	}{
		{"google", models.ProviderGoogle},
		{"KAKAO", models.ProviderKakao},
		{"facebook", models.Provider("facebook")},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			fa := &fakeAuth{err: services.ErrSocialLoginFailed}
			s := NewGRPCServer("", logging.Nop{}, fa, nil)

			_, err := s.SocialLogin(context.Background(), mustStruct(t, map[string]any{"email": "s@x.com", "provider": tt.raw}))
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
			assert.Equal(t, tt.want, fa.gotProvider)
		})
	}
}

func TestRecertify_UsesUserIDFromContext(t *testing.T) {
	fa := &fakeAuth{}
	s := NewGRPCServer("", logging.Nop{}, fa, nil)

	_, err := s.Recertify(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := context.WithValue(context.Background(), userIDKey, "u1")
	resp, err := s.Recertify(ctx, mustStruct(t, map[string]any{"name": "Kim", "phone": 123.0}))
	require.NoError(t, err)
	assert.Equal(t, common.SuccessMessage, resp.GetFields()["message"].GetStringValue())

	assert.Equal(t, "u1", fa.gotUserID)
	require.NotNil(t, fa.gotPatch.Name)
	assert.Equal(t, "Kim", *fa.gotPatch.Name)
	assert.Nil(t, fa.gotPatch.Phone, "non-string values are ignored")
	assert.Nil(t, fa.gotPatch.Birth)
}

func TestCheckEmail_Response(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, &fakeAuth{exists: true}, nil)

	resp, err := s.CheckEmail(context.Background(), mustStruct(t, map[string]any{"email": "a@x.com"}))
	require.NoError(t, err)
	assert.True(t, resp.GetFields()["exists"].GetBoolValue())
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
		msg  string
	}{
		{services.ErrEmailNotFound, codes.NotFound, "EMAIL_NOT_FOUND"},
		{services.ErrUserNotFound, codes.NotFound, "USER_NOT_FOUND"},
		{services.ErrWrongPassword, codes.Unauthenticated, "WRONG_PASSWORD"},
		{services.ErrRefreshTokenMismatch, codes.Unauthenticated, "REFRESH_TOKEN_NOT_MATCH"},
		{services.ErrDuplicateEmail, codes.AlreadyExists, "DUPLICATE_EMAIL"},
		{services.ErrRecertificationFailed, codes.Internal, "RECERTIFICATION_FAILED"},
		{errors.New("pq: connection refused"), codes.Internal, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			st := status.Convert(toStatus(tt.err))
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.msg, st.Message())
		})
	}
}
