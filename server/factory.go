// Package server builds the HTTP engine serving an environment.
package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.tickamp.dev/bootstrap"
	"go.tickamp.dev/bootstrap/environment"
	"go.tickamp.dev/bootstrap/logging"
)

// Options contains options for the engines built by a Factory.
type Options struct {
	// Sets the Logger to use to log engine events. If nil, the logging
	// messages are discarded.
	Logger bootstrap.Logger
	// Signals defines the signals to listen to. When one of these signals is
	// received, the engine stops (default: syscall.SIGINT, syscall.SIGTERM).
	// An empty, non-nil slice disables signal handling.
	Signals []os.Signal
}

func (o Options) copy() *Options {
	return &o
}

// Factory builds engines from the http section of the configuration.
type Factory struct {
	opts *Options
}

// NewFactory creates a Factory with the provided options.
func NewFactory(opts *Options) *Factory {
	if opts == nil {
		opts = &Options{}
	}
	opts = opts.copy()
	if opts.Signals == nil {
		opts.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return &Factory{opts: opts}
}

// BuildServer implements bootstrap.ServerFactory.
func (f *Factory) BuildServer(env *environment.Environment) (bootstrap.Engine, error) {
	return f.Build(env)
}

// Build returns an engine serving env. The engine is not started.
func (f *Factory) Build(env *environment.Environment) (*Engine, error) {
	if env == nil || env.Config == nil {
		return nil, fmt.Errorf("missing environment")
	}
	cfg := &env.Config.HTTP

	var tlsConfig *tls.Config
	if cfg.ConnectorType.IsSSL() {
		var err error
		if tlsConfig, err = newTLSConfig(cfg.SSL); err != nil {
			return nil, err
		}
	}

	var requestLog *logging.RequestLogger
	if cfg.RequestLog.Enabled() {
		var err error
		if requestLog, err = logging.NewRequestLogger(cfg.RequestLog); err != nil {
			return nil, fmt.Errorf("failed to build request log: %w", err)
		}
	}

	app, err := f.appHandler(env, requestLog)
	if err != nil {
		if requestLog != nil {
			requestLog.Close()
		}
		return nil, err
	}

	return &Engine{
		env:        env,
		cfg:        cfg,
		opts:       f.opts,
		app:        app,
		admin:      f.adminHandler(env),
		tls:        tlsConfig,
		requestLog: requestLog,
	}, nil
}

// appHandler mounts the application routes under the root path.
func (f *Factory) appHandler(env *environment.Environment, requestLog *logging.RequestLogger) (http.Handler, error) {
	cfg := &env.Config.HTTP
	m, err := newMetrics(env.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if cfg.UseForwardedHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(headers(cfg, env.Name))
	r.Use(requestID)
	if requestLog != nil {
		r.Use(logRequests(requestLog))
	}
	r.Use(m.instrument)
	if cfg.Gzip.Enabled {
		gz, err := compress(cfg.Gzip)
		if err != nil {
			return nil, err
		}
		r.Use(gz)
	}
	if !cfg.ConnectorType.LimitsConnections() {
		r.Use(limit(cfg.MaxThreads))
	}

	if prefix := cfg.RoutePrefix(); prefix != "" {
		r.Mount(prefix, env.Router)
	} else {
		r.Mount("/", env.Router)
	}
	return r, nil
}

// adminHandler serves the operational endpoints and the admin tasks.
func (f *Factory) adminHandler(env *environment.Environment) http.Handler {
	cfg := &env.Config.HTTP

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if cfg.AdminUsername != "" {
		r.Use(middleware.BasicAuth(env.Name, map[string]string{
			cfg.AdminUsername: cfg.AdminPassword,
		}))
	}
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "must-revalidate,no-cache,no-store")
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong\n"))
	})
	r.Method(http.MethodGet, "/healthcheck", env.HealthChecks)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(env.Metrics, promhttp.HandlerOpts{}))
	r.Mount("/tasks", env.Admin)
	return r
}
