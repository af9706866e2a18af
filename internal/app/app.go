// Package app assembles the relay's components from a models.Config: the
// outbound limiter, the registry client, the submission journal and the
// service and HTTP routes on top of them. Both binaries build on it.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"crptapi/internal/api"
	"crptapi/internal/crpt"
	"crptapi/internal/logger"
	"crptapi/internal/models"
	"crptapi/internal/observability"
	"crptapi/internal/ratelimit"
	"crptapi/internal/storage"
	"crptapi/internal/submission"
	"crptapi/internal/version"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config    *models.Config
	Limiter   ratelimit.Limiter
	Submitter crpt.Submitter
	Storage   storage.Storage
	Service   *submission.Service

	version        version.Info
	logger         *slog.Logger
	limiterMetrics *observability.LimiterMetrics
}

type options struct {
	clientOpts []crpt.Option
	storage    storage.Storage
}

// Option customizes how New builds the application.
type Option func(*options)

// WithClientOptions appends options to the registry client, after the ones
// derived from the configuration.
func WithClientOptions(opts ...crpt.Option) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithStorage uses s as the journal instead of creating one from the
// configuration. The App takes ownership of s.
func WithStorage(s storage.Storage) Option {
	return func(o *options) { o.storage = s }
}

// NewLimiter builds the limiter selected by cfg.Strategy.
func NewLimiter(cfg models.RateLimitConfig, gateOpts ...ratelimit.GateOption) (ratelimit.Limiter, error) {
	unit, err := ratelimit.ParseTimeUnit(cfg.TimeUnit)
	if err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case models.StrategyFixedWindow, "":
		gate, err := ratelimit.NewGateForUnit(unit, cfg.RequestLimit, gateOpts...)
		if err != nil {
			return nil, err
		}
		return gate, nil
	case models.StrategyTokenBucket:
		bucket, err := ratelimit.NewTokenBucket(cfg.RequestLimit, unit.Duration())
		if err != nil {
			return nil, err
		}
		return bucket, nil
	default:
		return nil, fmt.Errorf("unsupported rate limit strategy: %s", cfg.Strategy)
	}
}

// instrumented reports whether spans or metrics are being collected.
func instrumented(cfg *models.Config) bool {
	return cfg.Metrics.Enabled || cfg.Observability.Tracing.Enabled
}

// New wires the relay from cfg. Instrumentation decorators are installed when
// metrics or tracing are enabled; they record against the global providers
// that observability.Setup installs.
func New(cfg *models.Config, ver version.Info, log *slog.Logger, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = slog.Default()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		Config:  cfg,
		version: ver,
		logger:  log,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	gateOpts := []ratelimit.GateOption{ratelimit.WithLogger(logger.Component(log, "ratelimit"))}
	if instrumented(cfg) {
		if a.limiterMetrics, err = observability.NewLimiterMetrics(); err != nil {
			return nil, fmt.Errorf("failed to create limiter metrics: %w", err)
		}
		gateOpts = append(gateOpts, ratelimit.WithResetHook(a.limiterMetrics.OnReset))
	}

	limiter, err := NewLimiter(cfg.RateLimit, gateOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	a.Limiter = limiter
	if a.limiterMetrics != nil {
		if err = a.limiterMetrics.Observe(a.Limiter); err != nil {
			return nil, fmt.Errorf("failed to observe rate limiter: %w", err)
		}
	}

	userAgent := cfg.Client.UserAgent
	if userAgent == "" {
		userAgent = ver.UserAgent()
	}
	clientOpts := []crpt.Option{
		crpt.WithTimeout(cfg.Client.Timeout),
		crpt.WithUserAgent(userAgent),
		crpt.WithLogger(logger.Component(log, "crpt")),
	}
	client, err := crpt.NewClient(a.Limiter, append(clientOpts, o.clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry client: %w", err)
	}
	a.Submitter = client

	a.Storage = o.storage
	if a.Storage == nil {
		store, err := storage.NewFactory().Create(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.Storage = store
	}

	if instrumented(cfg) {
		submitter, err := observability.NewInstrumentedSubmitter(client)
		if err != nil {
			return nil, fmt.Errorf("failed to instrument registry client: %w", err)
		}
		a.Submitter = submitter

		store, err := observability.NewInstrumentedStorage(a.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to instrument storage: %w", err)
		}
		a.Storage = store
	}

	a.Service = submission.NewService(a.Submitter, a.Storage,
		submission.WithLogger(logger.Component(log, "submission")),
		submission.WithAcquireTimeout(cfg.RateLimit.AcquireTimeout),
	)

	log.Info("Relay assembled",
		"time_unit", cfg.RateLimit.TimeUnit,
		"request_limit", cfg.RateLimit.RequestLimit,
		"strategy", cfg.RateLimit.Strategy,
		"storage", cfg.Storage.Type,
	)
	return a, nil
}

// Handler returns the relay HTTP API.
func (a *App) Handler() http.Handler {
	handlers := api.NewHandlers(a.Service,
		api.WithStorage(a.Storage),
		api.WithLimiter(a.Limiter),
		api.WithVersion(a.version.Version),
		api.WithLogger(logger.Component(a.logger, "api")),
	)

	routeOpts := []api.RouteOption{api.WithRateLimitHeaders(a.Limiter)}
	if a.Config.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(a.Config.Observability.ServiceName))
	}
	return api.SetupRoutes(handlers, routeOpts...)
}

// Close stops the limiter and closes the journal.
func (a *App) Close() error {
	var errs []error
	if a.limiterMetrics != nil {
		if err := a.limiterMetrics.Close(); err != nil {
			errs = append(errs, fmt.Errorf("limiter metrics: %w", err))
		}
	}
	if a.Limiter != nil {
		a.Limiter.Close()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
