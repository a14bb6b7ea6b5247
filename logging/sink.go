package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.tickamp.dev/bootstrap/config"
)

// stdout is swapped by tests.
var stdout io.Writer = os.Stdout

// writerHook writes entries at its levels to a writer.
type writerHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(b)
	return err
}

// filteredHook restricts a hook to a subset of levels.
type filteredHook struct {
	logrus.Hook
	levels []logrus.Level
}

func (h *filteredHook) Levels() []logrus.Level {
	return h.levels
}

// zoneFormatter formats entry times in a fixed location.
type zoneFormatter struct {
	loc   *time.Location
	inner logrus.Formatter
}

func (f *zoneFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	e := *entry
	e.Time = entry.Time.In(f.loc)
	return f.inner.Format(&e)
}

func newFormatter(format, zone string) (logrus.Formatter, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", zone, err)
	}
	var inner logrus.Formatter
	switch format {
	case "json":
		inner = &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	case "text", "":
		inner = &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano, DisableColors: true}
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return &zoneFormatter{loc: loc, inner: inner}, nil
}

// sinks holds the hooks built from a configuration and what must be closed
// when they are replaced.
type sinks struct {
	hooks   []logrus.Hook
	closers []io.Closer
}

func (s *sinks) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildSinks(console config.ConsoleConfig, file config.FileConfig, syslog config.SyslogConfig) (*sinks, error) {
	s := &sinks{}
	if console.Enabled {
		h, err := newConsoleHook(console)
		if err != nil {
			return nil, err
		}
		s.hooks = append(s.hooks, h)
	}
	if file.Enabled {
		h, closer, err := newFileHook(file)
		if err != nil {
			return nil, err
		}
		s.hooks = append(s.hooks, h)
		s.closers = append(s.closers, closer)
	}
	if syslog.Enabled {
		h, err := newSyslogHook(syslog)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.hooks = append(s.hooks, h)
	}
	return s, nil
}

func newConsoleHook(cfg config.ConsoleConfig) (logrus.Hook, error) {
	formatter, err := newFormatter(cfg.LogFormat, cfg.TimeZone)
	if err != nil {
		return nil, err
	}
	levels, err := levelsUpTo(cfg.Threshold)
	if err != nil {
		return nil, err
	}
	return &writerHook{w: stdout, formatter: formatter, levels: levels}, nil
}

func newFileHook(cfg config.FileConfig) (logrus.Hook, io.Closer, error) {
	formatter, err := newFormatter(cfg.LogFormat, cfg.TimeZone)
	if err != nil {
		return nil, nil, err
	}
	levels, err := levelsUpTo(cfg.Threshold)
	if err != nil {
		return nil, nil, err
	}

	var w io.WriteCloser
	if cfg.Archive {
		w = &lumberjack.Logger{
			Filename:   cfg.CurrentLogFilename,
			MaxSize:    int(cfg.MaxFileSize / config.Megabyte),
			MaxBackups: cfg.ArchivedFileCount,
		}
	} else {
		f, err := os.OpenFile(cfg.CurrentLogFilename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %q: %w", cfg.CurrentLogFilename, err)
		}
		w = f
	}
	return &writerHook{w: w, formatter: formatter, levels: levels}, w, nil
}
