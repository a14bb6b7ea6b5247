package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report keys as they appear in configuration files.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the struct tags of target and the rules spanning several
// fields of its server configuration. Every violation is reported.
func Validate(target Provider) error {
	var result *multierror.Error

	if err := structValidator().Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			result = multierror.Append(result, fieldError(fe))
		}
	}

	for _, err := range target.ServerConfig().check() {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func fieldError(fe validator.FieldError) error {
	// Drop the root type name from the namespace.
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	if fe.Param() != "" {
		return fmt.Errorf("%s: must satisfy %s=%s (got %v)", key, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("%s: must satisfy %s", key, fe.Tag())
}

func (c *Configuration) check() []error {
	var errs []error
	h := &c.HTTP
	if h.ConnectorType.IsSSL() && h.SSL == nil {
		errs = append(errs, errors.New("http: must have an SSL configuration when using SSL connection"))
	}
	if h.MinThreads > h.MaxThreads {
		errs = append(errs, errors.New("http: must have a smaller min_threads than max_threads"))
	}
	if h.AdminPassword != "" && h.AdminUsername == "" {
		errs = append(errs, errors.New("http: must have admin_username if admin_password is defined"))
	}
	if c.Logging.File.Enabled && c.Logging.File.CurrentLogFilename == "" {
		errs = append(errs, errors.New("logging.file: must have current_log_filename if enabled is true"))
	}
	if h.RequestLog.File.Enabled && h.RequestLog.File.CurrentLogFilename == "" {
		errs = append(errs, errors.New("http.request_log.file: must have current_log_filename if enabled is true"))
	}
	return errs
}
