package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.tickamp.dev/bootstrap"
)

// connectorState represents a state of a connector:
//
//	idle -> serving -> shuttingDown -> stopped
//	          |             |             ^
//	          |             v             |
//	          +-------> terminating ------+
//	          |
//	          +-------> failed
type connectorState uint8

const (
	idle connectorState = iota
	serving
	shuttingDown
	terminating
	stopped
	failed
)

func (s connectorState) String() string {
	switch s {
	case idle:
		return "Idle"
	case serving:
		return "Serving"
	case shuttingDown:
		return "ShuttingDown"
	case terminating:
		return "Terminating"
	case stopped:
		return "Stopped"
	case failed:
		return "Failed"
	default:
		return fmt.Sprintf("%d", int(s))
	}
}

// connector serves an http.Server on a listener. It is used once: a
// restarted engine builds new connectors.
type connector struct {
	name        string
	server      *http.Server
	listener    net.Listener
	gracePeriod time.Duration
	logger      bootstrap.Logger

	// Enforces atomic state change
	mut   sync.Mutex
	state connectorState
	err   error
	// Prevent against double close of the done chan
	doneOnce sync.Once
	// Closed when we are done
	done chan struct{}
}

func newConnector(name string, server *http.Server, listener net.Listener,
	gracePeriod time.Duration, logger bootstrap.Logger) *connector {
	return &connector{
		name:        name,
		server:      server,
		listener:    listener,
		gracePeriod: gracePeriod,
		logger:      logger,
		state:       idle,
		done:        make(chan struct{}),
	}
}

// serve starts serving in the background.
func (c *connector) serve() error {
	if _, err := c.transition(serving, []connectorState{idle}); err != nil {
		return err
	}
	c.info("listening", "addr", c.listener.Addr().String())

	go func() {
		err := c.server.Serve(c.listener)
		if errors.Is(err, http.ErrServerClosed) {
			// Shutdown or terminate set the final state.
			return
		}
		if err == nil {
			err = errors.New("connector exited")
		}
		c.fail(err)
	}()
	return nil
}

// shutdown stops accepting connections and waits for the in-flight requests,
// at most for the grace period. Connections still open afterwards are closed.
func (c *connector) shutdown(ctx context.Context) error {
	if _, err := c.transition(shuttingDown, []connectorState{serving}); err != nil {
		return err
	}

	c.info("starting graceful shutdown", "timeout", c.gracePeriod)
	ctx, cancel := context.WithTimeout(ctx, c.gracePeriod)
	defer cancel()
	if err := c.server.Shutdown(ctx); err != nil {
		if ctx.Err() != nil {
			c.info("connector did not shut down in time -- terminating")
			return c.terminate()
		}
		return c.fail(err)
	}

	c.transition(stopped, []connectorState{shuttingDown})
	c.unblockWaiters()
	return nil
}

// terminate closes the listener and every connection.
func (c *connector) terminate() error {
	if _, err := c.transition(terminating,
		[]connectorState{serving, shuttingDown}); err != nil {
		return err
	}

	if err := c.server.Close(); err != nil {
		return c.fail(err)
	}

	c.transition(stopped, []connectorState{terminating})
	c.unblockWaiters()
	return nil
}

// Done returns a chan that is closed when the connector is either stopped or
// has failed.
func (c *connector) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that made the connector fail, if any.
func (c *connector) Err() error {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.err
}

// State returns the current state of the connector.
func (c *connector) State() connectorState {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.state
}

// Addr returns the address the connector listens on.
func (c *connector) Addr() net.Addr {
	return c.listener.Addr()
}

func (c *connector) fail(err error) error {
	c.error(err, "connector failed")
	c.mut.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mut.Unlock()
	c.transition(failed, []connectorState{serving, shuttingDown, terminating})
	c.unblockWaiters()
	return err
}

// unblockWaiters closes the done chan. It is protected by a Once struct to
// avoid multiple closes, that could happen when the server fails while it
// is being shut down.
func (c *connector) unblockWaiters() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// transition moves the connector to a new state if the current state is in
// the list of allowed states.
func (c *connector) transition(to connectorState,
	allowedFromStates []connectorState) (connectorState, error) {
	c.mut.Lock()
	defer c.mut.Unlock()

	current := c.state
	allowed := false
	for _, state := range allowedFromStates {
		if current == state {
			allowed = true
			break
		}
	}
	if !allowed {
		return current, fmt.Errorf("cannot transition from %s to %s: %w",
			current.String(), to.String(), errInvalidState)
	}

	c.state = to
	if to != current {
		c.info("transitioned to state", "to", to.String(), "from",
			current.String())
	}
	return current, nil
}

// info logs an information message.
func (c *connector) info(msg string, keysAndValues ...interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, append(keysAndValues, "connector", c.name)...)
	}
}

// error logs an error
func (c *connector) error(err error, msg string, keysAndValues ...interface{}) {
	if c.logger != nil {
		c.logger.Error(err, msg, append(keysAndValues, "connector",
			c.name)...)
	}
}
