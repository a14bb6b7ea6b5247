package environment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.tickamp.dev/bootstrap/config"
)

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.ContextParameters = map[string]string{"region": "eu"}

	env, err := New(&cfg, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", env.Name)
	assert.Same(t, &cfg, env.Config)
	assert.Equal(t, "eu", env.ContextParameters["region"])
	assert.Equal(t, "hello", env.Logger.Data["logger"])

	families, err := env.Metrics.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewWithoutConfiguration(t *testing.T) {
	_, err := New(nil, "hello")
	assert.Error(t, err)
}

func TestManage(t *testing.T) {
	cfg := config.Default()
	env, err := New(&cfg, "hello")
	require.NoError(t, err)

	first, second := &noopManaged{}, &noopManaged{}
	env.Manage(first)
	env.Manage(nil)
	env.Manage(second)
	assert.Equal(t, []Managed{first, second}, env.Managed())
}

func TestHealthChecks(t *testing.T) {
	h := NewHealthChecks(0)
	h.Register("database", HealthCheckFunc(func(ctx context.Context) error { return nil }))
	h.Register("queue", HealthCheckFunc(func(ctx context.Context) error { return errors.New("queue is full") }))
	assert.Equal(t, []string{"database", "queue"}, h.Names())

	results := h.Run(context.Background())
	assert.True(t, results["database"].Healthy)
	assert.False(t, results["queue"].Healthy)
	assert.Equal(t, "queue is full", results["queue"].Message)

	h.Unregister("queue")
	assert.Equal(t, []string{"database"}, h.Names())
}

func TestHealthCheckTimeout(t *testing.T) {
	h := NewHealthChecks(10 * time.Millisecond)
	h.Register("slow", HealthCheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	}))

	results := h.Run(context.Background())
	assert.False(t, results["slow"].Healthy)
	assert.Equal(t, "health check timeout", results["slow"].Message)
}

func TestHealthCheckTimeoutCancelsCheck(t *testing.T) {
	h := NewHealthChecks(10 * time.Millisecond)
	canceled := make(chan error, 1)
	h.Register("blocked", HealthCheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		canceled <- ctx.Err()
		return ctx.Err()
	}))

	results := h.Run(context.Background())
	assert.False(t, results["blocked"].Healthy)

	select {
	case err := <-canceled:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("check was not canceled")
	}
}

func TestHealthChecksHandler(t *testing.T) {
	h := NewHealthChecks(0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	h.Register("database", HealthCheckFunc(func(ctx context.Context) error { return nil }))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body["database"].Healthy)

	h.Register("queue", HealthCheckFunc(func(ctx context.Context) error { return errors.New("down") }))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type noopManaged struct{}

func (*noopManaged) Start(ctx context.Context) error { return nil }
func (*noopManaged) Stop(ctx context.Context) error  { return nil }
