package bootstrap

// Logger is a simple logger interface accepting key-value pair parameters.
// logging.Adapter implements it on top of the configured loggers.
type Logger interface {
	// Logs an info message.
	Info(msg string, keysAndValues ...interface{})
	// Logs an error.
	Error(err error, msg string, keysAndValues ...interface{})
}
