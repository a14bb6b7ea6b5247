package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"go.tickamp.dev/bootstrap/environment"
)

// Event is passed to the controller observers on a state change.
type Event struct {
	// The previous state of the controller.
	From State
	// The new state of the controller.
	To State
	// The error returned by the engine during the transition, if any.
	Error error
}

// Options contains the collaborators of a Controller.
type Options struct {
	// Sets the Logger to use to log lifecycle events. If nil, the logging
	// messages are discarded.
	Logger Logger
	// Banner is printed when the server starts. If nil or failing, a plain
	// message is logged instead.
	Banner BannerSource
	// EnvironmentFactory builds the environment passed to the service
	// (default: environment.New).
	EnvironmentFactory EnvironmentFactory
	// ServerFactory builds the engine from the initialized environment. It
	// is required.
	ServerFactory ServerFactory
}

func (o Options) copy() *Options {
	return &o
}

// Controller drives the lifecycle of a service and of the engine serving it.
// Its transitions are serialized; State and Engine may be called from any
// goroutine.
type Controller[C Configuration] struct {
	service Service[C]
	cfg     C
	opts    *Options

	// Serializes transitions
	mut sync.Mutex
	// Guards phase for readers
	phaseMut sync.RWMutex
	phase    phase

	observers []chan<- Event
}

// New creates a Controller for svc and cfg. It returns nil if either the
// service or the server factory is nil.
func New[C Configuration](svc Service[C], cfg C, opts *Options) *Controller[C] {
	if svc == nil || opts == nil || opts.ServerFactory == nil {
		return nil
	}
	opts = opts.copy()
	if opts.EnvironmentFactory == nil {
		opts.EnvironmentFactory = environment.New
	}
	return &Controller[C]{
		service: svc,
		cfg:     cfg,
		opts:    opts,
		phase:   destroyed{},
	}
}

// Init builds the environment, initializes the service and builds the engine.
// It does nothing unless the controller is Destroyed. A context canceled
// before a construction step aborts the initialization.
func (c *Controller[C]) Init() error {
	return c.InitCtx(context.Background())
}

// InitCtx is Init providing context.
func (c *Controller[C]) InitCtx(ctx context.Context) error {
	c.mut.Lock()
	defer c.mut.Unlock()

	if _, ok := c.current().(destroyed); !ok {
		return nil
	}
	eng, err := c.doInit(ctx)
	if err != nil {
		return err
	}
	c.transition(stopped{eng}, nil)
	return nil
}

// Start starts the engine, initializing first when the controller is
// Destroyed. If the engine fails to start, it is stopped and the controller
// remains Stopped.
func (c *Controller[C]) Start() error {
	return c.StartCtx(context.Background())
}

// StartCtx is Start providing context.
func (c *Controller[C]) StartCtx(ctx context.Context) error {
	c.mut.Lock()
	defer c.mut.Unlock()
	_, err := c.start(ctx)
	return err
}

// Stop stops the engine. A Destroyed controller is initialized and left
// Stopped. The state advances even if the engine fails to stop.
func (c *Controller[C]) Stop() error {
	return c.StopCtx(context.Background())
}

// StopCtx is Stop providing context.
func (c *Controller[C]) StopCtx(ctx context.Context) error {
	c.mut.Lock()
	defer c.mut.Unlock()

	switch p := c.current().(type) {
	case destroyed:
		eng, err := c.doInit(ctx)
		if err != nil {
			return err
		}
		c.transition(stopped{eng}, nil)
		return nil
	case running:
		err := c.doStop(ctx, p.eng)
		c.transition(stopped{p.eng}, err)
		return err
	}
	return nil
}

// Destroy stops the engine if it is running and destroys it. The controller
// is Destroyed afterwards, even on error, and the next transition builds a new
// engine.
func (c *Controller[C]) Destroy() error {
	return c.DestroyCtx(context.Background())
}

// DestroyCtx is Destroy providing context.
func (c *Controller[C]) DestroyCtx(ctx context.Context) error {
	c.mut.Lock()
	defer c.mut.Unlock()

	var err error
	switch p := c.current().(type) {
	case destroyed:
		return nil
	case stopped:
		err = c.doDestroy(ctx, p.eng)
	case running:
		var result *multierror.Error
		if stopErr := c.doStop(ctx, p.eng); stopErr != nil {
			result = multierror.Append(result, stopErr)
		}
		if destroyErr := c.doDestroy(ctx, p.eng); destroyErr != nil {
			result = multierror.Append(result, destroyErr)
		}
		if result != nil {
			if len(result.Errors) == 1 {
				err = result.Errors[0]
			} else {
				err = result
			}
		}
	}
	c.transition(destroyed{}, err)
	return err
}

// Join starts the engine if needed and blocks until it stops serving. The
// controller is Stopped afterwards.
func (c *Controller[C]) Join() error {
	c.mut.Lock()
	eng, err := c.start(context.Background())
	c.mut.Unlock()
	if err != nil {
		return err
	}

	c.info("joining server")
	err = eng.Join()

	c.mut.Lock()
	defer c.mut.Unlock()
	// The engine may have been stopped or destroyed through the controller
	// while joining.
	if p, ok := c.current().(running); ok && p.eng == eng {
		c.transition(stopped{eng}, err)
	}
	return err
}

// Serve initializes and starts the service, then blocks until the engine
// stops serving.
func (c *Controller[C]) Serve() error {
	if err := c.Init(); err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}
	return c.Join()
}

// State returns the current state of the controller.
func (c *Controller[C]) State() State {
	return c.current().state()
}

// Engine returns the engine owned by the controller, or nil when Destroyed.
func (c *Controller[C]) Engine() Engine {
	return c.current().engine()
}

// Name returns the service name.
func (c *Controller[C]) Name() string {
	return c.service.Name()
}

// Observe registers a chan on which the controller will post its state
// changes. No action is taken if ch is nil. Sends are blocking: observers
// must keep reading until they are unregistered.
func (c *Controller[C]) Observe(ch chan<- Event) {
	if ch == nil {
		return
	}
	c.mut.Lock()
	defer c.mut.Unlock()
	c.observers = append(c.observers, ch)
}

// Unobserve removes the provided chan from the list of observers. No action is
// taken if ch is nil or not in the list of observers.
func (c *Controller[C]) Unobserve(ch chan<- Event) {
	c.mut.Lock()
	defer c.mut.Unlock()
	for i, o := range c.observers {
		if o == ch {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			break
		}
	}
}

// start brings the controller to Running and returns its engine. The caller
// holds mut.
func (c *Controller[C]) start(ctx context.Context) (Engine, error) {
	var eng Engine
	switch p := c.current().(type) {
	case running:
		return p.eng, nil
	case stopped:
		eng = p.eng
	case destroyed:
		var err error
		if eng, err = c.doInit(ctx); err != nil {
			return nil, err
		}
		c.transition(stopped{eng}, nil)
	}
	if err := c.doStart(ctx, eng); err != nil {
		return nil, err
	}
	c.transition(running{eng}, nil)
	return eng, nil
}

func (c *Controller[C]) doInit(ctx context.Context) (Engine, error) {
	name := c.service.Name()
	c.info("initializing")

	if err := ctx.Err(); err != nil {
		return nil, c.initError(err)
	}
	env, err := c.opts.EnvironmentFactory(c.cfg.ServerConfig(), name)
	if err != nil {
		return nil, c.initError(fmt.Errorf("failed to build environment: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, c.initError(err)
	}
	if err := c.service.Initialize(c.cfg, env); err != nil {
		return nil, c.initError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, c.initError(err)
	}
	eng, err := c.opts.ServerFactory.BuildServer(env)
	if err != nil {
		return nil, c.initError(fmt.Errorf("failed to build server: %w", err))
	}
	if eng == nil {
		return nil, c.initError(errors.New("server factory returned no engine"))
	}
	return eng, nil
}

func (c *Controller[C]) doStart(ctx context.Context, eng Engine) error {
	c.announce()
	if err := eng.Start(ctx); err != nil {
		c.error(err, "unable to start server, stopping")
		if stopErr := eng.Stop(ctx); stopErr != nil {
			c.error(stopErr, "unable to stop server after failed start")
		}
		return err
	}
	c.info("started")
	return nil
}

func (c *Controller[C]) doStop(ctx context.Context, eng Engine) error {
	c.info("stopping")
	return eng.Stop(ctx)
}

func (c *Controller[C]) doDestroy(ctx context.Context, eng Engine) error {
	c.info("destroying")
	return eng.Destroy(ctx)
}

// announce logs the banner, or a plain message if there is none.
func (c *Controller[C]) announce() {
	if c.opts.Banner != nil {
		banner, err := c.opts.Banner()
		if err == nil {
			c.info("starting " + c.service.Name() + "\n" + banner)
			return
		}
	}
	c.info("starting " + c.service.Name())
}

func (c *Controller[C]) initError(err error) error {
	err = &InitError{Name: c.service.Name(), Err: err}
	c.error(err, "initialization failed")
	return err
}

func (c *Controller[C]) current() phase {
	c.phaseMut.RLock()
	defer c.phaseMut.RUnlock()
	return c.phase
}

// transition sets the new phase and notifies observers. The caller holds mut.
func (c *Controller[C]) transition(to phase, cause error) {
	c.phaseMut.Lock()
	from := c.phase
	c.phase = to
	c.phaseMut.Unlock()

	if from.state() != to.state() {
		c.info("transitioned to state", "to", to.state().String(), "from",
			from.state().String())
	}

	event := Event{From: from.state(), To: to.state(), Error: cause}
	for _, observer := range c.observers {
		observer <- event
	}
}

// info logs an information message.
func (c *Controller[C]) info(msg string, keysAndValues ...interface{}) {
	if c.opts.Logger != nil {
		c.opts.Logger.Info(msg, append(keysAndValues, "name", c.service.Name())...)
	}
}

// error logs an error
func (c *Controller[C]) error(err error, msg string, keysAndValues ...interface{}) {
	if c.opts.Logger != nil {
		c.opts.Logger.Error(err, msg, append(keysAndValues, "name",
			c.service.Name())...)
	}
}
