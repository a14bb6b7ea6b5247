package bootstrap

import (
	"context"

	"go.tickamp.dev/bootstrap/config"
	"go.tickamp.dev/bootstrap/environment"
)

// Configuration is implemented by service configurations embedding
// config.Configuration.
type Configuration interface {
	ServerConfig() *config.Configuration
}

// Service is the application run by a Controller.
type Service[C Configuration] interface {
	// Name provides a user-friendly name for the service, that is used in
	// the logs and as the name of the environment.
	Name() string
	// Initialize registers the service resources, health checks and managed
	// objects. It is called once per engine.
	Initialize(cfg C, env *environment.Environment) error
}

// Engine is a server built from an environment.
type Engine interface {
	// Start binds the connectors and begins serving. It does not block.
	Start(ctx context.Context) error
	// Stop stops serving. A stopped engine can be started again.
	Stop(ctx context.Context) error
	// Destroy releases the engine. It cannot be used afterwards.
	Destroy(ctx context.Context) error
	// Join blocks until the engine stops serving.
	Join() error
}

// ServerFactory builds an Engine serving an environment.
type ServerFactory interface {
	BuildServer(env *environment.Environment) (Engine, error)
}

// ServerFactoryFunc adapts a function to a ServerFactory.
type ServerFactoryFunc func(env *environment.Environment) (Engine, error)

// BuildServer calls f(env).
func (f ServerFactoryFunc) BuildServer(env *environment.Environment) (Engine, error) {
	return f(env)
}

// EnvironmentFactory builds the environment of a service.
type EnvironmentFactory func(cfg *config.Configuration, name string) (*environment.Environment, error)
