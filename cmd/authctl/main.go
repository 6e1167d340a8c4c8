package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/humanizone/internal/authctl"
	"github.com/dmitrijs2005/humanizone/internal/flagx"
	"github.com/dmitrijs2005/humanizone/internal/logging"
	"github.com/dmitrijs2005/humanizone/internal/server"
	"github.com/dmitrijs2005/humanizone/internal/server/config"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/repomanager"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, authctl.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	db, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	svc, _, err := server.BuildAuthService(cfg, db, rm, logger, nil)
	if err != nil {
		return err
	}

	args := flagx.Positional(os.Args[1:], config.OwnedFlags())
	return authctl.NewApp(svc, os.Stdin, int(os.Stdin.Fd()), os.Stdout).Run(ctx, args)
}
