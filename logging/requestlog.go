package logging

import (
	"io"

	"github.com/sirupsen/logrus"

	"go.tickamp.dev/bootstrap/config"
)

// RequestLogger writes one line per HTTP request.
type RequestLogger struct {
	*logrus.Logger
	sinks *sinks
}

// NewRequestLogger builds a request logger from cfg. Every request is logged
// at INFO; the sink thresholds do not apply.
func NewRequestLogger(cfg config.RequestLogConfig) (*RequestLogger, error) {
	console, file, syslog := cfg.Console, cfg.File, cfg.Syslog
	console.Threshold, file.Threshold, syslog.Threshold = config.LevelAll, config.LevelAll, config.LevelAll
	console.TimeZone, file.TimeZone, syslog.TimeZone = cfg.TimeZone, cfg.TimeZone, cfg.TimeZone

	l, s, err := newLogger(config.LevelInfo, console, file, syslog)
	if err != nil {
		return nil, err
	}
	return &RequestLogger{Logger: l, sinks: s}, nil
}

// Close releases the files held by the logger.
func (r *RequestLogger) Close() error {
	r.Logger.SetOutput(io.Discard)
	return r.sinks.Close()
}
