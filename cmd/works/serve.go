package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bakushin-github/bakushin.dev/internal/handlers"
	"github.com/bakushin-github/bakushin.dev/internal/platform/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the works pages and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, root)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				if err := a.close(closeCtx); err != nil {
					a.logger.Warn("telemetry shutdown failed", zap.Error(err))
				}
			}()
			return serve(ctx, a, baseURL)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "public origin used for canonical links")
	return cmd
}

func serve(ctx context.Context, a *app, baseURL string) error {
	startedAt := time.Now().UTC()
	pages, err := handlers.NewPageHandlers(a.catalog,
		handlers.WithNavigationTimeout(a.cfg.Navigation.Timeout),
		handlers.WithBaseURL(baseURL),
	)
	if err != nil {
		return fmt.Errorf("initialise page handlers: %w", err)
	}
	api := handlers.NewAPIHandlers(a.catalog)
	health := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(handlers.BuildInfo{Version: version, StartedAt: startedAt}),
		handlers.WithReadinessCheck(func(context.Context) error {
			if !a.catalog.Loaded() {
				return errors.New("catalog not loaded")
			}
			return nil
		}),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.TraceMiddleware(a.cfg.Secrets.ProjectID),
			observability.InjectLoggerMiddleware(a.logger.Named("http")),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(a.logger),
		),
		handlers.WithHealthHandlers(health),
		handlers.WithMetricsHandler(a.providers.MetricsHandler()),
		handlers.WithPageRoutes(pages.Routes),
		handlers.WithAPIRoutes(api.Routes),
	)

	server := &http.Server{
		Addr:         net.JoinHostPort("", a.cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	// Warm the catalog so the first visitor does not pay for aggregation.
	go func() {
		snap := a.catalog.Snapshot(ctx)
		a.logger.Info("catalog warmed", zap.String("session", snap.Session.String()), zap.Int("items", len(snap.Items)))
	}()

	serverLogger := a.logger.Named("http").With(zap.String("addr", server.Addr))
	errCh := make(chan error, 1)
	go func() {
		serverLogger.Info("works server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received; draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
