package logging

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"go.tickamp.dev/bootstrap/config"
)

// parseLevel converts a configured level. ok is false for OFF.
func parseLevel(level string) (lvl logrus.Level, ok bool, err error) {
	switch strings.ToUpper(level) {
	case config.LevelOff:
		return logrus.PanicLevel, false, nil
	case config.LevelAll, "":
		return logrus.TraceLevel, true, nil
	}
	lvl, err = logrus.ParseLevel(level)
	if err != nil {
		return 0, false, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, true, nil
}

// levelsUpTo returns the levels at least as severe as threshold.
func levelsUpTo(threshold string) ([]logrus.Level, error) {
	max, ok, err := parseLevel(threshold)
	if err != nil || !ok {
		return nil, err
	}
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= max {
			levels = append(levels, l)
		}
	}
	return levels, nil
}
