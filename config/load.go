package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path into target, which must be a
// pointer to a struct embedding Configuration.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PREFIX_HTTP_PORT=9000)
//  2. Configuration file (YAML)
//  3. Default values
//
// An empty path loads defaults and environment variables only. The result is
// validated before Load returns.
func Load(path, envPrefix string, target Provider) error {
	if target == nil || reflect.ValueOf(target).Kind() != reflect.Ptr {
		return errors.New("configuration target must be a non-nil pointer")
	}

	// Defaults first, file and environment values are decoded on top.
	*target.ServerConfig() = Default()

	v := viper.New()
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, reflect.TypeOf(target).Elem(), "")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
				return fmt.Errorf("configuration file not found: %s", path)
			}
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(target, viper.DecodeHook(decodeHooks())); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(target.ServerConfig())

	if err := Validate(target); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// ApplyDefaults normalizes values read from files and fills defaults that
// depend on other values.
func ApplyDefaults(cfg *Configuration) {
	cfg.HTTP.ConnectorType = ConnectorType(strings.ToLower(string(cfg.HTTP.ConnectorType)))
	if cfg.HTTP.SSL != nil && len(cfg.HTTP.SSL.SupportedProtocols) == 0 {
		cfg.HTTP.SSL.SupportedProtocols = DefaultSupportedProtocols()
	}

	l := &cfg.Logging
	l.Level = strings.ToUpper(l.Level)
	for name, level := range l.Loggers {
		l.Loggers[name] = strings.ToUpper(level)
	}
	l.Console.Threshold = strings.ToUpper(l.Console.Threshold)
	l.File.Threshold = strings.ToUpper(l.File.Threshold)
	l.Syslog.Threshold = strings.ToUpper(l.Syslog.Threshold)
	l.Syslog.Facility = strings.ToLower(l.Syslog.Facility)
	cfg.HTTP.RequestLog.Syslog.Facility = strings.ToLower(cfg.HTTP.RequestLog.Syslog.Facility)
}

// Dump writes cfg as YAML.
func Dump(w io.Writer, cfg interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		sizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// sizeDecodeHook converts strings like "6KiB" and plain numbers to Size.
func sizeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Size(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return ParseSize(v)
		case int:
			return Size(v), nil
		case int64:
			return Size(v), nil
		case uint64:
			return Size(v), nil
		case float64:
			return Size(v), nil
		default:
			return data, nil
		}
	}
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	sizeType     = reflect.TypeOf(Size(0))
)

// bindEnvs registers every leaf key of t so that AutomaticEnv overrides keys
// absent from the file.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		if strings.Contains(opts, "squash") {
			bindEnvs(v, f.Type, prefix)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		ft := f.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != durationType && ft != sizeType {
			bindEnvs(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}
