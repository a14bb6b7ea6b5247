package config

// Log levels accepted by the logging and sink thresholds.
const (
	LevelAll   = "ALL"
	LevelTrace = "TRACE"
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelOff   = "OFF"
)

// LoggingConfig is the logging section of the configuration file.
type LoggingConfig struct {
	// Level is the default level of every logger.
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=ALL TRACE DEBUG INFO WARN ERROR OFF"`

	// Loggers overrides Level for named loggers.
	Loggers map[string]string `mapstructure:"loggers" yaml:"loggers,omitempty" validate:"dive,oneof=ALL TRACE DEBUG INFO WARN ERROR OFF"`

	Console ConsoleConfig `mapstructure:"console" yaml:"console"`
	File    FileConfig    `mapstructure:"file" yaml:"file"`
	Syslog  SyslogConfig  `mapstructure:"syslog" yaml:"syslog"`
}

// ConsoleConfig configures the stdout sink.
type ConsoleConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Threshold string `mapstructure:"threshold" yaml:"threshold" validate:"oneof=ALL TRACE DEBUG INFO WARN ERROR OFF"`
	TimeZone  string `mapstructure:"time_zone" yaml:"time_zone" validate:"required"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// FileConfig configures the file sink.
type FileConfig struct {
	Enabled            bool   `mapstructure:"enabled" yaml:"enabled"`
	Threshold          string `mapstructure:"threshold" yaml:"threshold" validate:"oneof=ALL TRACE DEBUG INFO WARN ERROR OFF"`
	CurrentLogFilename string `mapstructure:"current_log_filename" yaml:"current_log_filename,omitempty"`

	// Archive rotates the current file once it reaches MaxFileSize and
	// keeps ArchivedFileCount old files.
	Archive           bool `mapstructure:"archive" yaml:"archive"`
	ArchivedFileCount int  `mapstructure:"archived_file_count" yaml:"archived_file_count" validate:"gte=1,lte=50"`
	MaxFileSize       Size `mapstructure:"max_file_size" yaml:"max_file_size" validate:"gte=1048576"`

	TimeZone  string `mapstructure:"time_zone" yaml:"time_zone" validate:"required"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// SyslogConfig configures the syslog sink.
type SyslogConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Threshold string `mapstructure:"threshold" yaml:"threshold" validate:"oneof=ALL TRACE DEBUG INFO WARN ERROR OFF"`

	// Host is a syslog daemon reachable over UDP, with an optional
	// port (514 by default).
	Host     string `mapstructure:"host" yaml:"host" validate:"required"`
	Facility string `mapstructure:"facility" yaml:"facility" validate:"oneof=auth authpriv daemon cron ftp lpr kern mail news syslog user uucp local0 local1 local2 local3 local4 local5 local6 local7"`

	TimeZone  string `mapstructure:"time_zone" yaml:"time_zone" validate:"required"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
}

// RequestLogConfig configures the HTTP request log. It uses the same sinks as
// LoggingConfig; the sink thresholds are ignored since every request is
// logged at INFO.
type RequestLogConfig struct {
	Console  ConsoleConfig `mapstructure:"console" yaml:"console"`
	File     FileConfig    `mapstructure:"file" yaml:"file"`
	Syslog   SyslogConfig  `mapstructure:"syslog" yaml:"syslog"`
	TimeZone string        `mapstructure:"time_zone" yaml:"time_zone" validate:"required"`
}

// Enabled reports whether at least one request log sink is on.
func (c *RequestLogConfig) Enabled() bool {
	return c.Console.Enabled || c.File.Enabled || c.Syslog.Enabled
}

// DefaultLogging returns the logging section defaults.
func DefaultLogging() LoggingConfig {
	return LoggingConfig{
		Level:   LevelInfo,
		Console: defaultConsole(true),
		File:    defaultFile(),
		Syslog:  defaultSyslog(),
	}
}

// DefaultRequestLog returns the request log defaults: console only.
func DefaultRequestLog() RequestLogConfig {
	return RequestLogConfig{
		Console:  defaultConsole(true),
		File:     defaultFile(),
		Syslog:   defaultSyslog(),
		TimeZone: "UTC",
	}
}

func defaultConsole(enabled bool) ConsoleConfig {
	return ConsoleConfig{
		Enabled:   enabled,
		Threshold: LevelAll,
		TimeZone:  "UTC",
		LogFormat: "text",
	}
}

func defaultFile() FileConfig {
	return FileConfig{
		Threshold:         LevelAll,
		Archive:           true,
		ArchivedFileCount: 5,
		MaxFileSize:       100 * Megabyte,
		TimeZone:          "UTC",
		LogFormat:         "text",
	}
}

func defaultSyslog() SyslogConfig {
	return SyslogConfig{
		Threshold: LevelAll,
		Host:      "localhost",
		Facility:  "local0",
		TimeZone:  "UTC",
		LogFormat: "text",
	}
}
