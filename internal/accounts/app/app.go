package app

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/govsignin/accountsvc/internal/accounts/http"
	"github.com/govsignin/accountsvc/internal/accounts/registry"
	"github.com/govsignin/accountsvc/internal/accounts/service"
	"github.com/govsignin/accountsvc/internal/accounts/store"
	"github.com/govsignin/accountsvc/internal/accounts/store/drivers/sqlite"
	"github.com/govsignin/accountsvc/pkg/jwtx"
	"github.com/govsignin/accountsvc/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the accounts service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	registry *registry.Registry
	verifier *jwtx.Verifier

	// cancels the registry watcher and the JWKS cache refresher
	cancel context.CancelFunc

	// Services
	sessionService      *service.SessionService
	verifierService     *service.VerifierService
	authorizeService    *service.AuthorizeService
	journeyService      *service.JourneyService
	completionService   *service.CompletionService
	tokenService        *service.TokenService
	outcomeService      *service.OutcomeService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "accounts-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(slogx.WithContext(context.Background(), app.logger))
	app.cancel = cancel

	if err := app.initRegistry(ctx); err != nil {
		_ = app.db.Close()
		cancel()
		return nil, err
	}

	keys, err := jwtx.NewRemoteKeySets(ctx, cfg.JWKSFetchTimeout, cfg.JWKSMaxAge, cfg.JWKSMaxClients)
	if err != nil {
		_ = app.db.Close()
		cancel()
		return nil, fmt.Errorf("failed to initialize JWKS resolver: %w", err)
	}
	app.verifier = &jwtx.Verifier{Keys: keys}

	encryptionKey, err := InitEncryptionKey(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		cancel()
		return nil, err
	}

	app.initServices()
	app.initHTTP(encryptionKey)

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("accounts service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down accounts service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service and the background watchers
	app.housekeepingService.Stop()
	app.cancel()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initRegistry loads the client registry and starts the file watcher so
// client changes are picked up without a restart
func (app *Application) initRegistry(ctx context.Context) error {
	reg, err := registry.Load(app.cfg.RegistryFile)
	if err != nil {
		return fmt.Errorf("failed to load client registry: %w", err)
	}
	if err := reg.Watch(ctx); err != nil {
		return fmt.Errorf("failed to watch client registry: %w", err)
	}
	app.registry = reg

	app.logger.Info("client registry loaded",
		"path", app.cfg.RegistryFile,
		"clients", reg.Len(),
	)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:         app.db,
		NonceTTL:      app.cfg.NonceTTL,
		APISessionTTL: app.cfg.APISessionTTL,
	}

	app.verifierService = &service.VerifierService{
		Verifier:     app.verifier,
		AuthorizeURL: app.cfg.AuthorizeURL,
	}

	app.authorizeService = &service.AuthorizeService{
		Registry: app.registry,
		Verifier: app.verifierService,
		Sessions: app.sessionService,
	}

	app.journeyService = &service.JourneyService{
		Registry: app.registry,
		Sessions: app.sessionService,
	}

	app.completionService = &service.CompletionService{
		Store:       app.db,
		OutcomeTTL:  app.cfg.OutcomeTTL,
		AuthCodeTTL: app.cfg.AuthCodeTTL,
	}

	app.tokenService = &service.TokenService{
		Store:          app.db,
		Registry:       app.registry,
		Verifier:       app.verifier,
		TokenURL:       app.cfg.TokenURL,
		AccessTokenTTL: app.cfg.AccessTokenTTL,
	}

	app.outcomeService = &service.OutcomeService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP(encryptionKey *rsa.PrivateKey) {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.registry,
		app.logger,
	)

	router.EncryptionKey = encryptionKey
	router.StartSessionURL = app.cfg.StartSessionURL
	router.ErrorPageURL = app.cfg.ErrorPageURL
	router.CookieDomain = app.cfg.CookieDomain

	// Wire services to router
	router.SessionService = app.sessionService
	router.AuthorizeService = app.authorizeService
	router.JourneyService = app.journeyService
	router.CompletionService = app.completionService
	router.TokenService = app.tokenService
	router.OutcomeService = app.outcomeService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
