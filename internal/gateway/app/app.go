// Package app assembles the gateway: route table, rate limiter, access
// token verification, and the HTTP server. Everything is carried on an
// explicit Application value constructed at startup, no package-level state.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ripple-social/ripple/internal/gateway/proxy"
	"github.com/ripple-social/ripple/pkg/httpx"
	"github.com/ripple-social/ripple/pkg/jwtx"
	"github.com/ripple-social/ripple/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the gateway with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	rdb     *redis.Client
	janitor chan struct{}

	server *http.Server
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	routes, err := proxy.ParseRoutes(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("parsing routes: %w", err)
	}
	for _, r := range routes {
		app.logger.Info("route registered",
			"prefix", r.PathPrefix,
			"upstream", r.Upstream.String(),
			"requires_auth", r.RequiresAuth,
		)
	}

	opts := proxy.Options{
		AccessVerifier: jwtx.NewVerifier([]byte(cfg.AccessSecret), cfg.Issuer),
		Transport: &http.Transport{
			ResponseHeaderTimeout: cfg.UpstreamTimeout,
		},
	}
	if cfg.AssertionSecret != "" {
		opts.AssertionSigner = jwtx.NewSigner(
			[]byte(cfg.AssertionSecret), "ripple-gateway", proxy.AssertionTTL)
	}

	handler := slogx.HTTPMiddleware(app.logger)(
		httpx.FixedWindowMiddleware(app.initCounterStore(), httpx.FixedWindowConfig{
			Limit:    cfg.RateLimitMax,
			Window:   cfg.RateLimitWindow,
			FailOpen: cfg.RateLimitFailOpen,
		})(proxy.NewHandler(routes, opts)),
	)

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.janitor != nil {
		close(app.janitor)
	}
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			return err
		}
	}

	app.logger.Info("gateway stopped")
	return nil
}

// initCounterStore picks the rate limiter's backing store: Redis when an
// address is configured so multiple gateway instances share counts,
// otherwise a process-local map with a janitor goroutine.
func (app *Application) initCounterStore() httpx.CounterStore {
	if app.cfg.RedisAddr != "" {
		app.rdb = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		app.logger.Info("rate limiter using redis counter store", "addr", app.cfg.RedisAddr)
		return httpx.NewRedisCounterStore(app.rdb, "ripple:ratelimit")
	}

	store := httpx.NewMemoryCounterStore()
	app.janitor = make(chan struct{})
	go func() {
		ticker := time.NewTicker(app.cfg.RateLimitWindow)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				store.Cleanup(app.cfg.RateLimitWindow)
			case <-app.janitor:
				return
			}
		}
	}()

	app.logger.Info("rate limiter using in-memory counter store")
	return store
}
