package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/netutil"

	"go.tickamp.dev/bootstrap/config"
	"go.tickamp.dev/bootstrap/environment"
	"go.tickamp.dev/bootstrap/logging"
)

// Engine serves the application and admin connectors of an environment. It
// can be stopped and started again until it is destroyed.
type Engine struct {
	env        *environment.Environment
	cfg        *config.HTTPConfig
	opts       *Options
	app        http.Handler
	admin      http.Handler
	tls        *tls.Config
	requestLog *logging.RequestLogger

	mut       sync.Mutex
	destroyed bool
	run       *run
}

// run is one Start to Stop cycle of an engine.
type run struct {
	connectors []*connector
	managed    []environment.Managed
	// Closed when the run is over
	done chan struct{}
	err  error
}

// Start starts the managed objects, binds the connectors and begins serving.
// It does not block.
func (e *Engine) Start(ctx context.Context) error {
	e.mut.Lock()
	defer e.mut.Unlock()

	if e.destroyed {
		return fmt.Errorf("cannot start: %w", errDestroyed)
	}
	if e.run != nil {
		return fmt.Errorf("cannot start: already running: %w", errInvalidState)
	}

	r := &run{done: make(chan struct{})}
	for _, m := range e.env.Managed() {
		if err := m.Start(ctx); err != nil {
			return e.abort(ctx, r, fmt.Errorf("failed to start managed object: %w", err))
		}
		r.managed = append(r.managed, m)
	}

	appLn, err := e.listen(ctx, e.cfg.Port, e.tls)
	if err != nil {
		return e.abort(ctx, r, err)
	}
	adminLn, err := e.listen(ctx, e.cfg.AdminPort, nil)
	if err != nil {
		appLn.Close()
		return e.abort(ctx, r, err)
	}
	r.connectors = []*connector{
		newConnector("application", e.newServer(e.app), appLn, e.cfg.ShutdownGracePeriod, e.opts.Logger),
		newConnector("admin", e.newServer(e.admin), adminLn, e.cfg.ShutdownGracePeriod, e.opts.Logger),
	}
	for _, c := range r.connectors {
		if err := c.serve(); err != nil {
			return e.abort(ctx, r, err)
		}
	}

	sc := make(chan os.Signal, 1)
	if len(e.opts.Signals) > 0 {
		signal.Notify(sc, e.opts.Signals...)
	}
	e.run = r
	go e.watch(r, sc)
	e.info("started", "application", appLn.Addr().String(), "admin", adminLn.Addr().String())
	return nil
}

// Stop shuts the connectors down, then stops the managed objects in reverse
// order. Stopping an engine that is not running does nothing.
func (e *Engine) Stop(ctx context.Context) error {
	e.mut.Lock()
	defer e.mut.Unlock()
	return e.stop(ctx, e.run)
}

// Destroy stops the engine and releases it. It cannot be started again.
func (e *Engine) Destroy(ctx context.Context) error {
	e.mut.Lock()
	defer e.mut.Unlock()

	if e.destroyed {
		return nil
	}
	var result *multierror.Error
	if err := e.stop(ctx, e.run); err != nil {
		result = multierror.Append(result, err)
	}
	if e.requestLog != nil {
		if err := e.requestLog.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	e.destroyed = true
	e.info("destroyed")
	return result.ErrorOrNil()
}

// Join blocks until the current run is over and returns the error that ended
// it, if any. It returns immediately if the engine is not running.
func (e *Engine) Join() error {
	e.mut.Lock()
	r := e.run
	e.mut.Unlock()
	if r == nil {
		return nil
	}
	<-r.done
	return r.err
}

// Running reports whether the engine is serving.
func (e *Engine) Running() bool {
	e.mut.Lock()
	defer e.mut.Unlock()
	return e.run != nil
}

// AppAddr returns the address of the application connector, or nil if the
// engine is not running.
func (e *Engine) AppAddr() net.Addr {
	return e.addr(0)
}

// AdminAddr returns the address of the admin connector, or nil if the engine
// is not running.
func (e *Engine) AdminAddr() net.Addr {
	return e.addr(1)
}

func (e *Engine) addr(i int) net.Addr {
	e.mut.Lock()
	defer e.mut.Unlock()
	if e.run == nil {
		return nil
	}
	return e.run.connectors[i].Addr()
}

// watch stops the run when a signal is received or a connector exits on its
// own.
func (e *Engine) watch(r *run, sc chan os.Signal) {
	defer signal.Stop(sc)

	exited := make(chan *connector, len(r.connectors))
	for _, c := range r.connectors {
		c := c
		go func() {
			select {
			case <-c.Done():
				exited <- c
			case <-r.done:
			}
		}()
	}

	select {
	case sig := <-sc:
		e.info("received signal", "signal", sig)
	case c := <-exited:
		e.info("connector exited", "connector", c.name)
	case <-r.done:
		return
	}

	e.mut.Lock()
	defer e.mut.Unlock()
	// The run may have been stopped in the meantime.
	if e.run != r {
		return
	}
	if err := e.stop(context.Background(), r); err != nil {
		e.error(err, "unable to stop server")
	}
}

// stop ends r. The caller holds mut.
func (e *Engine) stop(ctx context.Context, r *run) error {
	if r == nil {
		return nil
	}
	e.info("stopping")

	var result *multierror.Error
	for _, c := range r.connectors {
		err := c.shutdown(ctx)
		if IsInvalidState(err) {
			// Failed on its own
			err = c.Err()
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	for i := len(r.managed) - 1; i >= 0; i-- {
		if err := r.managed[i].Stop(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to stop managed object: %w", err))
		}
	}

	if result != nil && len(result.Errors) == 1 {
		r.err = result.Errors[0]
	} else {
		r.err = result.ErrorOrNil()
	}
	e.run = nil
	close(r.done)
	e.info("stopped")
	return r.err
}

// abort undoes a partial start. The caller holds mut.
func (e *Engine) abort(ctx context.Context, r *run, cause error) error {
	for _, c := range r.connectors {
		if c.State() == idle {
			c.listener.Close()
			continue
		}
		_ = c.terminate()
	}
	for i := len(r.managed) - 1; i >= 0; i-- {
		if err := r.managed[i].Stop(ctx); err != nil {
			e.error(err, "unable to stop managed object")
		}
	}
	return cause
}

// listen binds port. TLS is enabled when tlsConfig is set, and the number of
// connections is bounded for the connector types limiting connections.
func (e *Engine) listen(ctx context.Context, port int, tlsConfig *tls.Config) (net.Listener, error) {
	lc := net.ListenConfig{}
	if e.cfg.ReuseAddress {
		lc.Control = reuseAddress
	}
	addr := net.JoinHostPort(e.cfg.BindHost, strconv.Itoa(port))
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}
	if e.cfg.ConnectorType.LimitsConnections() {
		ln = netutil.LimitListener(ln, e.cfg.MaxThreads)
	}
	return ln, nil
}

func (e *Engine) newServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		IdleTimeout:       e.cfg.MaxIdleTime,
		ReadHeaderTimeout: e.cfg.ReadHeaderTimeout,
		MaxHeaderBytes:    e.cfg.RequestHeaderBufferSize.Bytes(),
	}
}

// info logs an information message.
func (e *Engine) info(msg string, keysAndValues ...interface{}) {
	if e.opts.Logger != nil {
		e.opts.Logger.Info(msg, append(keysAndValues, "name", e.env.Name)...)
	}
}

// error logs an error
func (e *Engine) error(err error, msg string, keysAndValues ...interface{}) {
	if e.opts.Logger != nil {
		e.opts.Logger.Error(err, msg, append(keysAndValues, "name",
			e.env.Name)...)
	}
}
