package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bakushin-github/bakushin.dev/internal/cms"
	"github.com/bakushin-github/bakushin.dev/internal/platform/config"
	"github.com/bakushin-github/bakushin.dev/internal/platform/observability"
	"github.com/bakushin-github/bakushin.dev/internal/platform/secrets"
	"github.com/bakushin-github/bakushin.dev/internal/platform/telemetry"
	"github.com/bakushin-github/bakushin.dev/internal/works"
	"github.com/bakushin-github/bakushin.dev/internal/wpgraphql"
)

const serviceName = "bakushin-works"

type rootOptions struct {
	envFile        string
	secretsProject string
	verbose        bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "works",
		Short:         "Serve and inspect the bakushin.dev works catalog",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the process environment")
	cmd.PersistentFlags().StringVar(&opts.secretsProject, "secrets-project", os.Getenv("WORKS_SECRETS_PROJECT"), "GCP project holding secret:// references")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newServeCmd(opts), newRoutesCmd(opts), newProbeCmd(opts))
	return cmd
}

// app is the wired process shared by every subcommand.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	providers *telemetry.Providers
	catalog   *works.Catalog
	source    works.Source
	closers   []func(context.Context) error
}

func bootstrap(ctx context.Context, opts *rootOptions) (*app, error) {
	// The resolver logs through a bootstrap logger until config picks the level.
	bootLogger, err := observability.NewLogger(observability.LoggerOptions{Verbose: opts.verbose})
	if err != nil {
		return nil, fmt.Errorf("initialise logger: %w", err)
	}
	resolver := secrets.NewResolver(ctx,
		secrets.WithLogger(bootLogger.Named("secrets")),
		secrets.WithProject(opts.secretsProject),
	)

	cfg, err := config.Load(ctx,
		config.WithEnvFile(opts.envFile),
		config.WithSecretResolver(resolver),
	)
	_ = resolver.Close()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if opts.verbose {
		cfg.Logging.Verbose = true
	}

	logger, err := observability.NewLogger(observability.LoggerOptions{
		Level:   cfg.Logging.Level,
		Verbose: cfg.Logging.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise logger: %w", err)
	}
	logger = logger.Named("works")

	providers, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    serviceName,
		ServiceVersion: version,
		MetricExporter: cfg.Telemetry.MetricExporter,
		TraceExporter:  cfg.Telemetry.TraceExporter,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise telemetry: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, providers: providers}
	a.closers = append(a.closers, providers.Shutdown)
	a.source = newSource(cfg, logger)

	meter := providers.MeterProvider.Meter(serviceName)
	a.catalog, err = works.NewCatalog(works.CatalogDeps{
		Source:       a.source,
		Logger:       logger.Named("catalog"),
		Meter:        meter,
		FetchSize:    cfg.Catalog.FetchSize,
		MaxItems:     cfg.Catalog.MaxItems,
		PerPage:      cfg.Catalog.PerPage,
		RelatedLimit: cfg.Catalog.RelatedLimit,
		GalleryLimit: cfg.Catalog.GalleryLimit,
		CacheTTL:     cfg.Catalog.CacheTTL,
	})
	if err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("initialise catalog: %w", err)
	}
	return a, nil
}

func newSource(cfg config.Config, logger *zap.Logger) works.Source {
	if cfg.Upstream.Endpoint == "" {
		logger.Info("no content API configured; serving local catalog", zap.String("path", cfg.Catalog.FallbackFile))
		return cms.NewSource(cfg.Catalog.FallbackFile, logger.Named("cms"))
	}
	client := wpgraphql.NewClient(cfg.Upstream.Endpoint,
		wpgraphql.WithToken(cfg.Upstream.Token),
		wpgraphql.WithTimeout(cfg.Upstream.Timeout),
		wpgraphql.WithLogger(logger.Named("wpgraphql")),
	)
	return wpgraphql.NewSource(client)
}

func (a *app) close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.logger.Sync()
	return firstErr
}
