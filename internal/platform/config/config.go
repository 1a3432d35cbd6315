package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultUpstreamTimeout = 10 * time.Second
	defaultFetchSize       = 100
	defaultMaxItems        = 1000
	defaultPerPage         = 9
	defaultRelatedLimit    = 6
	defaultGalleryLimit    = 15
	defaultCacheTTL        = 24 * time.Hour
	defaultFallbackFile    = "content/works.yaml"
	defaultNavTimeout      = 1500 * time.Millisecond
	defaultLogLevel        = "info"

	// MetricExporterPrometheus serves OpenTelemetry metrics on /metrics.
	MetricExporterPrometheus = "prometheus"
	// TraceExporterStdout pretty-prints spans to stdout.
	TraceExporterStdout = "stdout"
	// ExporterNone disables the exporter.
	ExporterNone = "none"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Upstream   UpstreamConfig
	Catalog    CatalogConfig
	Navigation NavigationConfig
	Logging    LoggingConfig
	Telemetry  TelemetryConfig
	Secrets    SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// UpstreamConfig points at the WPGraphQL endpoint. An empty Endpoint selects the
// local fallback catalog.
type UpstreamConfig struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// CatalogConfig sizes aggregation, listing and the named collection policies.
type CatalogConfig struct {
	FetchSize    int
	MaxItems     int
	PerPage      int
	RelatedLimit int
	GalleryLimit int
	CacheTTL     time.Duration
	FallbackFile string
}

// NavigationConfig tunes the card transition controller.
type NavigationConfig struct {
	Timeout time.Duration
}

// LoggingConfig selects logger verbosity.
type LoggingConfig struct {
	Level   string
	Verbose bool
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	MetricExporter string
	TraceExporter  string
}

// SecretsConfig locates Secret Manager.
type SecretsConfig struct {
	ProjectID string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for sm:// and secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the configuration from defaults, .env overrides, environment
// variables and optional secret lookups, in increasing order of precedence.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnvValues[key]
		return value, ok
	}

	verbose := boolWithDefault(lookup, "WORKS_DEBUG", false)
	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "WORKS_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:  durationWithDefault(lookup, "WORKS_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "WORKS_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "WORKS_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Upstream: UpstreamConfig{
			Endpoint: strings.TrimSpace(stringWithDefault(lookup, "WORKS_API_URL", stringWithDefault(lookup, "NEXT_PUBLIC_WORDPRESS_API_URL", ""))),
			Token:    stringWithDefault(lookup, "WORKS_API_TOKEN", ""),
			Timeout:  durationWithDefault(lookup, "WORKS_API_TIMEOUT", defaultUpstreamTimeout),
		},
		Catalog: CatalogConfig{
			FetchSize:    intWithDefault(lookup, "WORKS_FETCH_SIZE", defaultFetchSize),
			MaxItems:     intWithDefault(lookup, "WORKS_MAX_ITEMS", defaultMaxItems),
			PerPage:      intWithDefault(lookup, "WORKS_PER_PAGE", defaultPerPage),
			RelatedLimit: intWithDefault(lookup, "WORKS_RELATED_LIMIT", defaultRelatedLimit),
			GalleryLimit: intWithDefault(lookup, "WORKS_GALLERY_LIMIT", defaultGalleryLimit),
			CacheTTL:     durationWithDefault(lookup, "WORKS_CACHE_TTL", defaultCacheTTL),
			FallbackFile: stringWithDefault(lookup, "WORKS_FALLBACK_FILE", defaultFallbackFile),
		},
		Navigation: NavigationConfig{
			Timeout: durationWithDefault(lookup, "WORKS_NAV_TIMEOUT", defaultNavTimeout),
		},
		Logging: LoggingConfig{
			Level:   strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
			Verbose: verbose,
		},
		Telemetry: TelemetryConfig{
			MetricExporter: strings.ToLower(stringWithDefault(lookup, "WORKS_METRICS_EXPORTER", MetricExporterPrometheus)),
			TraceExporter:  strings.ToLower(stringWithDefault(lookup, "WORKS_TRACE_EXPORTER", ExporterNone)),
		},
		Secrets: SecretsConfig{
			ProjectID: stringWithDefault(lookup, "WORKS_SECRETS_PROJECT", ""),
		},
	}
	if cfg.Logging.Verbose {
		cfg.Logging.Level = "debug"
	}

	token, err := resolveSecret(ctx, cfg.Upstream.Token, options.secret)
	if err != nil {
		return Config{}, err
	}
	cfg.Upstream.Token = token

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Upstream.Timeout <= 0 {
		invalid = append(invalid, "Upstream.Timeout")
	}
	if cfg.Catalog.FetchSize < 1 {
		invalid = append(invalid, "Catalog.FetchSize")
	}
	if cfg.Catalog.MaxItems < 1 {
		invalid = append(invalid, "Catalog.MaxItems")
	}
	if cfg.Catalog.PerPage < 1 {
		invalid = append(invalid, "Catalog.PerPage")
	}
	if cfg.Catalog.RelatedLimit < 0 {
		invalid = append(invalid, "Catalog.RelatedLimit")
	}
	if cfg.Catalog.GalleryLimit < 0 {
		invalid = append(invalid, "Catalog.GalleryLimit")
	}
	if cfg.Navigation.Timeout <= 0 {
		invalid = append(invalid, "Navigation.Timeout")
	}
	switch cfg.Telemetry.MetricExporter {
	case MetricExporterPrometheus, ExporterNone:
	default:
		invalid = append(invalid, "Telemetry.MetricExporter")
	}
	switch cfg.Telemetry.TraceExporter {
	case TraceExporterStdout, ExporterNone:
	default:
		invalid = append(invalid, "Telemetry.TraceExporter")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
