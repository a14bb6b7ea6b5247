package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"go.tickamp.dev/bootstrap/config"
	"go.tickamp.dev/bootstrap/logging"
)

// RequestIDHeader carries the id of a request, generated unless the client
// provided one.
const RequestIDHeader = "X-Request-Id"

// headers sets the Server header and suppresses the Date header according to
// cfg.
func headers(cfg *config.HTTPConfig, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.UseServerHeader {
				w.Header().Set("Server", name)
			}
			if !cfg.UseDateHeader {
				// A nil value prevents net/http from adding its own.
				w.Header()["Date"] = nil
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestID tags every request and response with an id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// logRequests writes one line per request to l.
func logRequests(l *logging.RequestLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				l.WithFields(map[string]interface{}{
					"remote":     r.RemoteAddr,
					"status":     status,
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start),
					"request_id": r.Header.Get(RequestIDHeader),
					"user_agent": r.UserAgent(),
				}).Info(fmt.Sprintf("%s %s %s", r.Method, r.RequestURI, r.Proto))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// metrics holds the request metrics of the application connector.
type metrics struct {
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of requests being served.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of requests served, by status code and method.",
		}, []string{"code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of the requests, by status code and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}
	var err error
	if m.inFlight, err = register(reg, m.inFlight); err != nil {
		return nil, err
	}
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, or returns the collector already registered in its
// place.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(m.inFlight,
		promhttp.InstrumentHandlerDuration(m.duration,
			promhttp.InstrumentHandlerCounter(m.requests, next)))
}

// compress gzips responses according to cfg. Clients whose user agent is
// excluded are served uncompressed.
func compress(cfg config.GzipConfig) (func(http.Handler) http.Handler, error) {
	var (
		wrap func(http.Handler) http.HandlerFunc
		err  error
	)
	minSize := gzhttp.MinSize(cfg.MinimumEntitySize.Bytes())
	if len(cfg.CompressedMimeTypes) > 0 {
		wrap, err = gzhttp.NewWrapper(minSize, gzhttp.ContentTypes(cfg.CompressedMimeTypes))
	} else {
		wrap, err = gzhttp.NewWrapper(minSize)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid gzip configuration: %w", err)
	}

	return func(next http.Handler) http.Handler {
		compressed := wrap(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := r.UserAgent()
			for _, excluded := range cfg.ExcludedUserAgents {
				if ua != "" && strings.Contains(ua, excluded) {
					next.ServeHTTP(w, r)
					return
				}
			}
			compressed.ServeHTTP(w, r)
		})
	}, nil
}

// limit bounds the number of requests served concurrently. Requests waiting
// for a slot are rejected when the client goes away.
func limit(n int) func(http.Handler) http.Handler {
	sem := semaphore.NewWeighted(int64(n))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sem.Acquire(r.Context(), 1); err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable),
					http.StatusServiceUnavailable)
				return
			}
			defer sem.Release(1)
			next.ServeHTTP(w, r)
		})
	}
}
