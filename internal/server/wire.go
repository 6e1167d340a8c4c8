package server

import (
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/humanizone/internal/cryptox"
	"github.com/dmitrijs2005/humanizone/internal/dbx"
	"github.com/dmitrijs2005/humanizone/internal/logging"
	"github.com/dmitrijs2005/humanizone/internal/server/auth"
	"github.com/dmitrijs2005/humanizone/internal/server/config"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/humanizone/internal/server/services"
)

// BuildAuthService wires the token issuer, hasher and store of an
// AuthService from c. observer may be nil; extra options are applied last.
func BuildAuthService(c *config.Config, db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger, observer services.Observer, extra ...services.Option) (*services.AuthService, *auth.TokenIssuer, error) {
	issuer, err := auth.NewTokenIssuer(auth.Settings{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshTTL:    c.RefreshTokenValidityDuration,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("token issuer: %w", err)
	}

	hasher, err := cryptox.NewBcryptHasher(c.HashCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hasher: %w", err)
	}

	var opts []services.Option
	if observer != nil {
		opts = append(opts, services.WithObserver(observer))
	}
	opts = append(opts, extra...)

	svc := services.NewAuthService(dbx.NewSQLTransactor(db), rm, issuer, hasher, logger, opts...)
	return svc, issuer, nil
}
