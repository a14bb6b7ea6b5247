// Package bootstrap runs an HTTP service from a configuration file.
//
// A service declares its configuration by embedding config.Configuration, and
// registers its resources on the environment it is given:
//
//	type HelloConfig struct {
//	    config.Configuration `mapstructure:",squash" yaml:",inline"`
//	    Saying string `mapstructure:"saying" validate:"required"`
//	}
//
//	type Hello struct{}
//
//	func (Hello) Name() string { return "hello" }
//
//	func (Hello) Initialize(cfg *HelloConfig, env *environment.Environment) error {
//	    env.Router.Get("/hello", func(rw http.ResponseWriter, req *http.Request) {
//	        rw.Write([]byte(cfg.Saying))
//	    })
//	    return nil
//	}
//
// The Controller builds the environment and the server engine, and drives them
// through the Destroyed, Stopped and Running states:
//
//	c := bootstrap.New[*HelloConfig](Hello{}, cfg, &bootstrap.Options{
//	    Logger:        logging.NewAdapter("bootstrap"),
//	    ServerFactory: server.NewFactory(nil),
//	})
//	if err := c.Serve(); err != nil {
//	    ...
//	}
//
// Most programs do not use the Controller directly, and hand the service to
// cli.New, which provides the server and check commands.
package bootstrap
