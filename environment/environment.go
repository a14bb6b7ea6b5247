// Package environment holds what a service registers while it initializes:
// its HTTP resources, admin tasks, health checks, metrics and managed objects.
package environment

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"go.tickamp.dev/bootstrap/config"
	"go.tickamp.dev/bootstrap/logging"
)

// Managed is an object started with the server and stopped after it.
type Managed interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Environment is the registration surface of a service.
type Environment struct {
	// Name of the service.
	Name string
	// Config is the server configuration the environment was built from.
	Config *config.Configuration
	// Router serves the application resources, under the configured root
	// path.
	Router chi.Router
	// Admin serves the admin tasks, under /tasks on the admin connector. A
	// gc task is registered.
	Admin chi.Router
	// HealthChecks are served on /healthcheck on the admin connector.
	HealthChecks *HealthChecks
	// Metrics are served on /metrics on the admin connector.
	Metrics *prometheus.Registry
	// Logger is the service logger.
	Logger *logrus.Entry
	// ContextParameters are the http.context_parameters of the configuration.
	ContextParameters map[string]string

	mut     sync.Mutex
	managed []Managed
}

// New returns the environment of the service name.
func New(cfg *config.Configuration, name string) (*Environment, error) {
	if cfg == nil {
		return nil, errors.New("missing server configuration")
	}
	metrics := prometheus.NewRegistry()
	if err := metrics.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := metrics.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	params := make(map[string]string, len(cfg.HTTP.ContextParameters))
	for k, v := range cfg.HTTP.ContextParameters {
		params[k] = v
	}
	admin := chi.NewRouter()
	admin.Post("/gc", func(w http.ResponseWriter, r *http.Request) {
		runtime.GC()
		_, _ = w.Write([]byte("Running GC...\nDone!\n"))
	})
	return &Environment{
		Name:              name,
		Config:            cfg,
		Router:            chi.NewRouter(),
		Admin:             admin,
		HealthChecks:      NewHealthChecks(0),
		Metrics:           metrics,
		Logger:            logging.Named(name),
		ContextParameters: params,
	}, nil
}

// Manage registers an object started before the connectors and stopped after
// them.
func (e *Environment) Manage(m Managed) {
	if m == nil {
		return
	}
	e.mut.Lock()
	defer e.mut.Unlock()
	e.managed = append(e.managed, m)
}

// Managed returns the managed objects in registration order.
func (e *Environment) Managed() []Managed {
	e.mut.Lock()
	defer e.mut.Unlock()
	return append([]Managed(nil), e.managed...)
}
