//go:build windows || plan9

package logging

import (
	"errors"

	"github.com/sirupsen/logrus"

	"go.tickamp.dev/bootstrap/config"
)

func newSyslogHook(config.SyslogConfig) (logrus.Hook, error) {
	return nil, errors.New("syslog is not supported on this platform")
}
