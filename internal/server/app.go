// Package server assembles and runs the auth server: the gRPC API and the
// ops HTTP endpoint, stopped together on SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/humanizone/internal/logging"
	"github.com/dmitrijs2005/humanizone/internal/server/config"
	"github.com/dmitrijs2005/humanizone/internal/server/metrics"
	"github.com/dmitrijs2005/humanizone/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/humanizone/internal/server/services"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/humanizone/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	grpc   *gs.GRPCServer
	ops    http.Handler
	traces *sdktrace.TracerProvider
}

// NewApp validates c, connects to the database, applies migrations and
// builds the servers.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app, err := newApp(c, logger, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	rec := metrics.NewRecorder()
	tp := newTracerProvider(logger)

	svc, issuer, err := BuildAuthService(c, db, rm, logger, rec,
		services.WithTracer(tp.Tracer("github.com/dmitrijs2005/humanizone/internal/server/services")))
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, err
	}

	var pinger metrics.Pinger
	if db != nil {
		pinger = db
	}

	return &App{
		config: c,
		logger: logger,
		db:     db,
		grpc:   gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc, issuer),
		ops:    metrics.NewRouter(rec, pinger, logger),
		traces: tp,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a signal arrives or either server
// fails. The database is closed on return.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpc.Run(gctx) })
	g.Go(func() error { return app.serveOps(gctx) })

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if terr := app.traces.Shutdown(shutdownCtx); terr != nil {
		app.logger.Error(ctx, "flushing traces", "error", terr.Error())
	}
	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(ctx, "closing db", "error", cerr.Error())
		}
	}
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) serveOps(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.config.OpsAddr,
		Handler:           app.ops,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting ops server", "address", app.config.OpsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
