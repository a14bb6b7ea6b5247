package environment

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthCheck reports whether a component is healthy. It returns nil if it
// is, or an error describing the problem.
//
// Check must return once ctx is done. A check outliving its timeout is
// reported unhealthy but keeps its goroutine until it returns.
type HealthCheck interface {
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to a HealthCheck.
type HealthCheckFunc func(ctx context.Context) error

// Check calls f(ctx).
func (f HealthCheckFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Result is the outcome of a single health check.
type Result struct {
	Healthy  bool          `json:"healthy"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// HealthChecks is a registry of named health checks.
type HealthChecks struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthChecks creates an empty registry. If timeout is 0, each check is
// given 5 seconds.
func NewHealthChecks(timeout time.Duration) *HealthChecks {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecks{
		checks:  make(map[string]HealthCheck),
		timeout: timeout,
	}
}

// Register adds a check, replacing any check with the same name.
func (h *HealthChecks) Register(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Unregister removes the check name.
func (h *HealthChecks) Unregister(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// Names returns the sorted names of the registered checks.
func (h *HealthChecks) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run runs every check concurrently and returns their results.
func (h *HealthChecks) Run(ctx context.Context) map[string]Result {
	h.mu.RLock()
	checks := make(map[string]HealthCheck, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(checks))
		g       errgroup.Group
	)
	for name, check := range checks {
		name, check := name, check
		g.Go(func() error {
			r := h.run(ctx, check)
			mu.Lock()
			results[name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (h *HealthChecks) run(ctx context.Context, check HealthCheck) Result {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() {
		errCh <- check.Check(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return Result{Message: err.Error(), Duration: time.Since(start)}
		}
		return Result{Healthy: true, Duration: time.Since(start)}
	case <-ctx.Done():
		return Result{Message: "health check timeout", Duration: time.Since(start)}
	}
}

// ServeHTTP runs the checks and writes their results as JSON. The status is
// 500 if any check is unhealthy, and 501 if no check is registered.
func (h *HealthChecks) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	results := h.Run(r.Context())

	status := http.StatusOK
	if len(results) == 0 {
		status = http.StatusNotImplemented
	}
	for _, result := range results {
		if !result.Healthy {
			status = http.StatusInternalServerError
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "must-revalidate,no-cache,no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(results)
}
