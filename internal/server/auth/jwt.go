// Package auth issues and verifies the signed access and refresh tokens.
// Access and refresh tokens are signed with different secrets, so one kind
// never verifies as the other.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// Settings configure a TokenIssuer.
type Settings struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenIssuer signs tokens with HS256 and only accepts HS256 when parsing.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type Option func(*TokenIssuer)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(i *TokenIssuer) { i.now = now }
}

var signingMethods = []string{jwt.SigningMethodHS256.Alg()}

func NewTokenIssuer(s Settings, opts ...Option) (*TokenIssuer, error) {
	if len(s.AccessSecret) == 0 || len(s.RefreshSecret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if string(s.AccessSecret) == string(s.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if s.AccessTTL <= 0 || s.RefreshTTL <= 0 {
		return nil, errors.New("token validity must be positive")
	}

	i := &TokenIssuer{
		accessSecret:  s.AccessSecret,
		refreshSecret: s.RefreshSecret,
		accessTTL:     s.AccessTTL,
		refreshTTL:    s.RefreshTTL,
		now:           time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// IssueAccessToken returns a signed access token and its expiry.
func (i *TokenIssuer) IssueAccessToken(userID, email string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: i.registered(userID, now, exp),
		UserID:           userID,
		Email:            email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// IssueRefreshToken returns a signed refresh token and its expiry. Every token
// carries a random ID, so two tokens issued in the same second still differ.
func (i *TokenIssuer) IssueRefreshToken(userID string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: i.registered(userID, now, exp),
		UserID:           userID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// VerifyAccessToken checks signature and expiry only.
func (i *TokenIssuer) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.parse(token, claims, i.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken checks signature and expiry only; it never consults the
// store.
func (i *TokenIssuer) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.parse(token, claims, i.refreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (i *TokenIssuer) registered(userID string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (i *TokenIssuer) parse(token string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods(signingMethods),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return common.ErrInvalidToken
	}
	return nil
}
