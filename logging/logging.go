package logging

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"go.tickamp.dev/bootstrap/config"
)

var (
	mu      sync.RWMutex
	root    = newDefaultRoot()
	current = config.DefaultLogging()
	active  *sinks
	named   = map[string]*logrus.Logger{}
)

func newDefaultRoot() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init replaces the root logger with one built from cfg. Loggers returned by
// Named before Init keep their previous sinks.
func Init(cfg config.LoggingConfig) error {
	l, s, err := newLogger(cfg.Level, cfg.Console, cfg.File, cfg.Syslog)
	if err != nil {
		return err
	}

	mu.Lock()
	previous := active
	root, current, active = l, cfg, s
	named = map[string]*logrus.Logger{}
	mu.Unlock()

	if previous != nil {
		return previous.Close()
	}
	return nil
}

// Root returns the root logger.
func Root() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns an entry tagged with name. Its level is taken from the
// loggers section when present, otherwise from the root level.
func Named(name string) *logrus.Entry {
	mu.RLock()
	l, cached := named[name]
	level, override := current.Loggers[name]
	base := root
	mu.RUnlock()

	if !cached {
		l = base
		if override {
			l = withLevel(base, level)
			mu.Lock()
			named[name] = l
			mu.Unlock()
		}
	}
	return l.WithField("logger", name)
}

// withLevel returns a logger sharing the sinks of base with another level.
func withLevel(base *logrus.Logger, level string) *logrus.Logger {
	l := &logrus.Logger{
		Out:          base.Out,
		Hooks:        base.Hooks,
		Formatter:    base.Formatter,
		ReportCaller: base.ReportCaller,
		ExitFunc:     base.ExitFunc,
	}
	lvl, enabled, err := parseLevel(level)
	if err != nil {
		lvl, enabled = base.GetLevel(), true
	}
	if !enabled {
		l.Hooks = make(logrus.LevelHooks)
	}
	l.SetLevel(lvl)
	return l
}

// newLogger builds a logger discarding its own output and writing to the
// configured sinks through hooks.
func newLogger(level string, console config.ConsoleConfig, file config.FileConfig, syslog config.SyslogConfig) (*logrus.Logger, *sinks, error) {
	lvl, enabled, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	// The syslog hook renders entries with the logger formatter.
	formatter, err := newFormatter(syslog.LogFormat, syslog.TimeZone)
	if err != nil {
		return nil, nil, err
	}
	s, err := buildSinks(console, file, syslog)
	if err != nil {
		return nil, nil, err
	}

	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(formatter)
	l.SetLevel(lvl)
	if enabled {
		for _, h := range s.hooks {
			l.AddHook(h)
		}
	}
	return l, s, nil
}
