// Package runtime wires configuration, storage, middleware and the HTTP
// server into a runnable gateway.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/secretlease/marketplace/internal/app"
	"github.com/secretlease/marketplace/internal/app/httpapi"
	"github.com/secretlease/marketplace/internal/app/metrics"
	"github.com/secretlease/marketplace/internal/app/storage/postgres"
	"github.com/secretlease/marketplace/internal/auth"
	"github.com/secretlease/marketplace/internal/config"
	"github.com/secretlease/marketplace/internal/kv"
	"github.com/secretlease/marketplace/internal/middleware"
	"github.com/secretlease/marketplace/internal/platform/migrations"
	"github.com/secretlease/marketplace/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *http.Server
	app        *app.Application
	db         *sqlx.DB
	revoker    kv.TokenRevoker
}

// NewApplication constructs a gateway instance with default wiring.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHrs)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("configure token issuer: %w", err)
	}

	stores, db, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	revoker, err := buildRevoker(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure token revocation: %w", err)
	}

	application := app.New(stores, issuer, revoker, log)

	authMW := middleware.NewAuthMiddleware(issuer, revoker, log,
		[]string{"/health", "/metrics", "/auth/register", "/auth/login"},
		[]string{"/listings"})
	rateMW := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	rateMW.StartCleanup(time.Minute)
	corsMW := middleware.NewCORSMiddleware(cfg.CORS.Origins())

	// Rate limiting sits inside auth so authenticated callers are keyed by
	// account id rather than remote address.
	var handler http.Handler = httpapi.NewHandler(application)
	handler = metrics.InstrumentHandler(handler)
	handler = rateMW.Handler(handler)
	handler = authMW.Handler(handler)
	handler = corsMW.Handler(handler)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		httpServer: httpSrv,
		app:        application,
		db:         db,
		revoker:    revoker,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the HTTP server and closes backends.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	if closer, ok := a.revoker.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.log.WithError(err).Warn("error closing revocation backend")
		}
	}
	return nil
}

// buildStores opens PostgreSQL when a DSN is configured and falls back to the
// in-memory store otherwise.
func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, *sqlx.DB, error) {
	if cfg.Database.DSN == "" {
		log.Warn("DATABASE_URL not set; using in-memory store")
		return app.Stores{}, nil, nil
	}

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrations.Apply(ctx, db.DB); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	store := postgres.New(db)
	return app.Stores{
		Accounts:     store,
		Transactions: store,
		Listings:     store,
		Config:       store,
		Stats:        store,
	}, db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// buildRevoker selects Redis-backed token revocation when configured.
func buildRevoker(cfg *config.Config, log *logger.Logger) (kv.TokenRevoker, error) {
	if cfg.Redis.Addr == "" {
		log.Warn("REDIS_ADDR not set; using in-process token revocation")
		return kv.NewMemoryRevoker(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return kv.NewRedisRevoker(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}
