// Package app wires the storefront together: backend client, services,
// HTTP handler, middleware, and lifecycle.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/feiralocal/storefront/internal/backend"
	"github.com/feiralocal/storefront/internal/catalog"
	"github.com/feiralocal/storefront/internal/customer"
	"github.com/feiralocal/storefront/internal/handler"
	"github.com/feiralocal/storefront/internal/payment"
	"github.com/feiralocal/storefront/pkg/health"
	"github.com/feiralocal/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.BackendURL),
		zap.Bool("sandbox", cfg.Sandbox),
	)

	client, err := backend.New(cfg.BackendURL)
	if err != nil {
		return errors.Wrap(err, "create backend client")
	}

	// Health check service. Readiness follows backend reachability.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("backend", 5*time.Second, func(ctx context.Context) error {
		_, err := client.ListStores(ctx, 0, 1)
		return err
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Services.
	var store customer.Store
	if cfg.SessionFile != "" {
		store = &customer.FileStore{Path: cfg.SessionFile}
	}
	accountSession := customer.NewSession(store, lg.Named("session"))
	accountSession.Hydrate()

	sessions := handler.NewSessionManager(client, client, cfg.Sandbox, cfg.SessionTTL)
	sessions.StartCleanup(ctx)

	h := handler.NewHandler(
		sessions,
		catalog.NewService(client),
		customer.NewService(client, accountSession),
		payment.NewResolver(client),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Content-Type"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
