// Package logging configures the process-wide loggers from the logging
// section of the configuration.
//
// Every sink (console, file, syslog) is attached to the root logger as a hook
// with its own threshold, so a single log call reaches each sink whose
// threshold it passes. Named loggers share the sinks and may override the
// level:
//
//	if err := logging.Init(cfg.Logging); err != nil {
//	    return err
//	}
//	log := logging.Named("server")
//	log.WithField("port", 8080).Info("listening")
//
// Adapter exposes a logrus entry through the key/value Logger interface used
// by the lifecycle controller and the server engine.
package logging
