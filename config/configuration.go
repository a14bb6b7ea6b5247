package config

// Configuration is the server part of a service configuration. Service
// configuration types embed it and add their own fields:
//
//	type HelloConfig struct {
//	    config.Configuration `mapstructure:",squash" yaml:",inline"`
//	    Saying string        `mapstructure:"saying" yaml:"saying" validate:"required"`
//	}
type Configuration struct {
	// HTTP configures the application and admin connectors.
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`

	// Logging configures the process-wide loggers.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig returns the configuration itself. It lets any type embedding
// Configuration be handed to the lifecycle controller.
func (c *Configuration) ServerConfig() *Configuration {
	return c
}

// Provider is implemented by every configuration embedding Configuration.
type Provider interface {
	ServerConfig() *Configuration
}

// Default returns a configuration with every default applied.
func Default() Configuration {
	return Configuration{
		HTTP:    DefaultHTTP(),
		Logging: DefaultLogging(),
	}
}
