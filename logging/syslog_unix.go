//go:build !windows && !plan9

package logging

import (
	"fmt"
	"log/syslog"
	"net"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"

	"go.tickamp.dev/bootstrap/config"
)

var facilities = map[string]syslog.Priority{
	"auth":     syslog.LOG_AUTH,
	"authpriv": syslog.LOG_AUTHPRIV,
	"daemon":   syslog.LOG_DAEMON,
	"cron":     syslog.LOG_CRON,
	"ftp":      syslog.LOG_FTP,
	"lpr":      syslog.LOG_LPR,
	"kern":     syslog.LOG_KERN,
	"mail":     syslog.LOG_MAIL,
	"news":     syslog.LOG_NEWS,
	"syslog":   syslog.LOG_SYSLOG,
	"user":     syslog.LOG_USER,
	"uucp":     syslog.LOG_UUCP,
	"local0":   syslog.LOG_LOCAL0,
	"local1":   syslog.LOG_LOCAL1,
	"local2":   syslog.LOG_LOCAL2,
	"local3":   syslog.LOG_LOCAL3,
	"local4":   syslog.LOG_LOCAL4,
	"local5":   syslog.LOG_LOCAL5,
	"local6":   syslog.LOG_LOCAL6,
	"local7":   syslog.LOG_LOCAL7,
}

func newSyslogHook(cfg config.SyslogConfig) (logrus.Hook, error) {
	facility, ok := facilities[cfg.Facility]
	if !ok {
		return nil, fmt.Errorf("invalid syslog facility %q", cfg.Facility)
	}
	levels, err := levelsUpTo(cfg.Threshold)
	if err != nil {
		return nil, err
	}

	addr := cfg.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "514")
	}
	hook, err := lsyslog.NewSyslogHook("udp", addr, facility|syslog.LOG_INFO, filepath.Base(os.Args[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to syslog at %s: %w", addr, err)
	}
	return &filteredHook{Hook: hook, levels: levels}, nil
}
