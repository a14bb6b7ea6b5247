// Package cli provides the commands of a service binary: server runs the
// service, check validates its configuration.
package cli

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"go.tickamp.dev/bootstrap"
	"go.tickamp.dev/bootstrap/config"
	"go.tickamp.dev/bootstrap/logging"
	"go.tickamp.dev/bootstrap/server"
)

// Banner is implemented by services providing a greeting printed when the
// server starts.
type Banner interface {
	Banner() (string, error)
}

// lifecycle is the part of the controller driven by the server command.
type lifecycle interface {
	Init() error
	Start() error
	Stop() error
	Join() error
	Destroy() error
	State() bootstrap.State
}

// New returns the root command of svc. newConfig returns an empty
// configuration the configuration file is loaded into.
func New[C bootstrap.Configuration](svc bootstrap.Service[C], newConfig func() C) *cobra.Command {
	root := &cobra.Command{
		Use:          svc.Name(),
		Short:        "Runs the " + svc.Name() + " service",
		SilenceUsage: true,
	}
	root.AddCommand(newServerCommand(svc, newConfig))
	root.AddCommand(newCheckCommand(svc, newConfig))
	return root
}

func newServerCommand[C bootstrap.Configuration](svc bootstrap.Service[C], newConfig func() C) *cobra.Command {
	return &cobra.Command{
		Use:   "server [config.yml]",
		Short: "Runs the service as an HTTP server",
		Long: `Runs the service as an HTTP server until it receives SIGINT or SIGTERM.

Every configuration key can be overridden by an environment variable named
after the service and the key, e.g. ` + EnvPrefix(svc.Name()) + `_HTTP_PORT.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(svc, newConfig, args)
			if err != nil {
				return err
			}
			if err := logging.Init(cfg.ServerConfig().Logging); err != nil {
				return fmt.Errorf("failed to configure logging: %w", err)
			}

			log := logging.NewAdapter("bootstrap")
			opts := &bootstrap.Options{
				Logger: log,
				ServerFactory: server.NewFactory(&server.Options{
					Logger: logging.NewAdapter("server"),
				}),
			}
			if b, ok := svc.(Banner); ok {
				opts.Banner = b.Banner
			}
			return runServer(bootstrap.New(svc, cfg, opts), log)
		},
	}
}

// runServer initializes and starts c, blocks until it stops serving, then
// destroys it.
func runServer(c lifecycle, log bootstrap.Logger) error {
	err := c.Init()
	if err == nil {
		err = c.Start()
	}
	if err != nil {
		log.Error(err, "unable to start server, shutting down")
		if c.State() != bootstrap.Destroyed {
			if stopErr := c.Stop(); stopErr != nil {
				log.Error(stopErr, "unable to stop server")
			}
		}
		return err
	}

	err = c.Join()
	if destroyErr := c.Destroy(); destroyErr != nil {
		log.Error(destroyErr, "unable to destroy server")
		if err == nil {
			err = destroyErr
		}
	}
	return err
}

func newCheckCommand[C bootstrap.Configuration](svc bootstrap.Service[C], newConfig func() C) *cobra.Command {
	var printConfig bool
	cmd := &cobra.Command{
		Use:   "check [config.yml]",
		Short: "Parses and validates the configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(svc, newConfig, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is OK")
			if printConfig {
				return config.Dump(cmd.OutOrStdout(), cfg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&printConfig, "print", "p", false, "print the effective configuration")
	return cmd
}

func load[C bootstrap.Configuration](svc bootstrap.Service[C], newConfig func() C, args []string) (C, error) {
	cfg := newConfig()
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	if err := config.Load(path, EnvPrefix(svc.Name()), cfg); err != nil {
		var zero C
		return zero, err
	}
	return cfg, nil
}

// EnvPrefix returns the prefix of the environment variables overriding the
// configuration of the service name.
func EnvPrefix(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, name)
}
