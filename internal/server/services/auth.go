// Package services contains server-side business logic. AuthService owns the
// account and session-token lifecycle: registration, local and social login,
// refresh-token rotation and re-certification of personal attributes.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/dmitrijs2005/humanizone/internal/cryptox"
	"github.com/dmitrijs2005/humanizone/internal/dbx"
	"github.com/dmitrijs2005/humanizone/internal/logging"
	"github.com/dmitrijs2005/humanizone/internal/server/auth"
	"github.com/dmitrijs2005/humanizone/internal/server/models"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/users"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TokenIssuer is the subset of auth.TokenIssuer the service needs.
type TokenIssuer interface {
	IssueAccessToken(userID, email string) (string, time.Time, error)
	IssueRefreshToken(userID string) (string, time.Time, error)
	VerifyRefreshToken(token string) (*auth.RefreshClaims, error)
}

// Observer receives one call per finished operation. outcome is "ok" or the
// error code.
type Observer interface {
	Observe(operation, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) Observe(string, string, time.Duration) {}

// RegisterInput is the data needed to create a local account.
type RegisterInput struct {
	Email      string
	Password   string
	Agreements models.Agreements
}

type RegistrationResult struct {
	UserID  string
	Message string
}

// SessionResult is returned by every operation that opens or renews a session.
type SessionResult struct {
	AccessToken  string
	RefreshToken string
	User         models.UserInfo
}

type AuthService struct {
	db          dbx.Transactor
	repomanager repomanager.RepositoryManager
	tokens      TokenIssuer
	hasher      cryptox.Hasher
	logger      logging.Logger
	observer    Observer
	tracer      trace.Tracer
	now         func() time.Time
}

type Option func(*AuthService)

// WithClock replaces time.Now when checking stored refresh-token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *AuthService) { s.observer = o }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *AuthService) { s.tracer = t }
}

func NewAuthService(db dbx.Transactor, m repomanager.RepositoryManager, tokens TokenIssuer, hasher cryptox.Hasher, logger logging.Logger, opts ...Option) *AuthService {
	s := &AuthService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		hasher:      hasher,
		logger:      logger.With("module", "auth_service"),
		observer:    nopObserver{},
		tracer:      otel.Tracer("github.com/dmitrijs2005/humanizone/internal/server/services"),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a local account. The password is hashed before the
// transaction starts; the (email, Local) pair is checked and inserted inside it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *RegistrationResult, err error) {
	ctx, done := s.begin(ctx, "register")
	defer func() { done(err) }()

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.fail(ctx, "register", err, ErrInternal)
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.FindByEmailAndProvider(ctx, in.Email, models.ProviderLocal)
		switch {
		case err == nil:
			return ErrDuplicateEmail
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		created, err = repo.InsertLocal(ctx, &models.User{
			Email:        in.Email,
			PasswordHash: hash,
			Agreements:   in.Agreements,
		})
		if errors.Is(err, common.ErrorAlreadyExists) {
			return ErrDuplicateEmail
		}
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "register", err, ErrInternal)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return &RegistrationResult{UserID: created.ID, Message: common.SuccessMessage}, nil
}

// Login authenticates a local account and opens a session. A wrong password
// leaves the stored refresh state untouched.
func (s *AuthService) Login(ctx context.Context, email, password string) (res *SessionResult, err error) {
	ctx, done := s.begin(ctx, "login")
	defer func() { done(err) }()

	user, err := s.repomanager.Users(s.db.DB()).FindByEmailAndProvider(ctx, email, models.ProviderLocal)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.fail(ctx, "login", ErrEmailNotFound, nil)
		}
		return nil, s.fail(ctx, "login", err, ErrInternal)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, s.fail(ctx, "login", err, ErrInternal)
	}
	if !ok {
		return nil, s.fail(ctx, "login", ErrWrongPassword, nil)
	}

	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res, err = s.openSession(ctx, s.repomanager.Users(tx), user)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "login", err, ErrInternal)
	}

	s.logger.Info(ctx, "login succeeded", "user_id", user.ID)
	return res, nil
}

// SocialLogin finds or creates the account for (email, provider) and opens a
// session. Every failure is reported as ErrSocialLoginFailed.
func (s *AuthService) SocialLogin(ctx context.Context, email string, provider models.Provider) (res *SessionResult, err error) {
	ctx, done := s.begin(ctx, "social_login")
	defer func() { done(err) }()

	if !provider.IsSocial() {
		return nil, s.fail(ctx, "social_login", ErrSocialLoginFailed.withCause(errors.New("not a social provider: "+string(provider))), nil)
	}

	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		user, err := repo.UpsertSocial(ctx, email, provider)
		if err != nil {
			return err
		}
		res, err = s.openSession(ctx, repo, user)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "social_login", ErrSocialLoginFailed.withCause(err), nil)
	}

	s.logger.Info(ctx, "social login succeeded", "user_id", res.User.ID, "provider", string(provider))
	return res, nil
}

// Refresh rotates a session. The token's signature and expiry are checked
// before the store is touched; then, with the user row locked, the stored
// expiry and hash are checked and a brand-new pair replaces the old one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (res *SessionResult, err error) {
	ctx, done := s.begin(ctx, "refresh")
	defer func() { done(err) }()

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, s.fail(ctx, "refresh", ErrInvalidOrExpiredToken.withCause(err), nil)
	}

	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindByIDForUpdate(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return ErrRefreshTokenNotFound
			}
			return err
		}
		if user.RefreshTokenHash == "" || user.RefreshTokenExpiresAt == nil {
			return ErrRefreshTokenNotFound
		}
		if s.now().After(*user.RefreshTokenExpiresAt) {
			return ErrInvalidOrExpiredToken
		}

		ok, err := s.hasher.Verify(refreshToken, user.RefreshTokenHash)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRefreshTokenMismatch
		}

		res, err = s.openSession(ctx, repo, user)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "refresh", err, ErrInternal)
	}

	s.logger.Info(ctx, "session refreshed", "user_id", claims.UserID)
	return res, nil
}

// Recertify overwrites the set fields of patch on an existing account.
func (s *AuthService) Recertify(ctx context.Context, userID string, patch models.AttributePatch) (err error) {
	ctx, done := s.begin(ctx, "recertify")
	defer func() { done(err) }()

	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if _, err := repo.FindByID(ctx, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := repo.PatchAttributes(ctx, userID, patch); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, "recertify", err, ErrRecertificationFailed)
	}

	s.logger.Info(ctx, "attributes recertified", "user_id", userID)
	return nil
}

// CheckEmail reports whether any account, local or social, uses email.
func (s *AuthService) CheckEmail(ctx context.Context, email string) (exists bool, err error) {
	ctx, done := s.begin(ctx, "check_email")
	defer func() { done(err) }()

	exists, err = s.repomanager.Users(s.db.DB()).ExistsByEmail(ctx, email)
	if err != nil {
		return false, s.fail(ctx, "check_email", err, ErrInternal)
	}
	return exists, nil
}

// openSession issues a token pair, stores the refresh token's hash and expiry
// and reloads the user for the response. It must run inside a transaction.
func (s *AuthService) openSession(ctx context.Context, repo users.Repository, user *models.User) (*SessionResult, error) {
	access, _, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(refresh)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateRefreshToken(ctx, user.ID, hash, refreshExp); err != nil {
		return nil, err
	}

	fresh, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &SessionResult{AccessToken: access, RefreshToken: refresh, User: fresh.Info()}, nil
}

// fail turns err into the *Error returned to callers. Errors that already are
// *Error pass through; anything else becomes fallback with err as its cause.
// Only the code leaves the service; the cause goes to the log.
func (s *AuthService) fail(ctx context.Context, op string, err error, fallback *Error) error {
	var e *Error
	if !errors.As(err, &e) {
		e = fallback.withCause(err)
	}

	args := []any{"op", op, "code", string(e.Code)}
	if e.Cause != nil {
		args = append(args, "error", e.Cause.Error())
	}
	if e.Kind == KindInternal {
		s.logger.Error(ctx, "operation failed", args...)
	} else {
		s.logger.Warn(ctx, "operation rejected", args...)
	}
	return e
}

// begin starts a span for op and returns the function that closes it and
// reports the outcome.
func (s *AuthService) begin(ctx context.Context, op string) (context.Context, func(error)) {
	start := s.now()
	ctx, span := s.startSpan(ctx, "AuthService."+op)

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(CodeOf(err))
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, outcome)
		}
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		span.End()
		s.observer.Observe(op, outcome, s.now().Sub(start))
	}
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}
