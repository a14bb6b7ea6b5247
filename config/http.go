package config

import (
	"strings"
	"time"
)

// ConnectorType selects how the application connector accepts and dispatches
// connections.
type ConnectorType string

const (
	// Blocking bounds concurrent connections by MaxThreads.
	Blocking ConnectorType = "blocking"
	// NonBlocking bounds concurrent requests by MaxThreads, idle
	// connections are free.
	NonBlocking ConnectorType = "nonblocking"
	// Legacy behaves like Blocking.
	Legacy ConnectorType = "legacy"
	// LegacySSL is Legacy over TLS.
	LegacySSL ConnectorType = "legacy+ssl"
	// NonBlockingSSL is NonBlocking over TLS.
	NonBlockingSSL ConnectorType = "nonblocking+ssl"
)

// IsSSL reports whether the connector requires an SSL configuration.
func (t ConnectorType) IsSSL() bool {
	return strings.HasSuffix(string(t), "+ssl")
}

// LimitsConnections reports whether MaxThreads bounds connections rather
// than in-flight requests.
func (t ConnectorType) LimitsConnections() bool {
	return t == Blocking || t == Legacy || t == LegacySSL
}

// HTTPConfig is the http section of the configuration file.
type HTTPConfig struct {
	// Port is the application port. 0 picks an ephemeral port.
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`

	// AdminPort is the admin port. 0 picks an ephemeral port.
	AdminPort int `mapstructure:"admin_port" yaml:"admin_port" validate:"gte=0,lte=65535"`

	// BindHost restricts both connectors to one interface. Empty binds all.
	BindHost string `mapstructure:"bind_host" yaml:"bind_host,omitempty"`

	// RootPath is the path application routes are mounted under. A
	// trailing "/*" is accepted.
	RootPath string `mapstructure:"root_path" yaml:"root_path" validate:"required,startswith=/"`

	ConnectorType ConnectorType `mapstructure:"connector_type" yaml:"connector_type" validate:"oneof=blocking nonblocking legacy legacy+ssl nonblocking+ssl"`

	// MaxThreads bounds connections or in-flight requests depending on
	// ConnectorType.
	MaxThreads int `mapstructure:"max_threads" yaml:"max_threads" validate:"gte=2,lte=1000000"`

	// MinThreads is kept for compatibility with existing configuration
	// files and only takes part in validation.
	MinThreads int `mapstructure:"min_threads" yaml:"min_threads" validate:"gte=1,lte=1000000"`

	// MaxIdleTime closes keep-alive connections idle for longer.
	MaxIdleTime time.Duration `mapstructure:"max_idle_time" yaml:"max_idle_time" validate:"gt=0"`

	// ReadHeaderTimeout bounds the time allowed to read request headers.
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gt=0"`

	// RequestHeaderBufferSize bounds the size of request headers.
	RequestHeaderBufferSize Size `mapstructure:"request_header_buffer_size" yaml:"request_header_buffer_size" validate:"gt=0"`

	// ShutdownGracePeriod is how long in-flight requests may run after a
	// stop before connections are closed.
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period" yaml:"shutdown_grace_period" validate:"gte=0"`

	ReuseAddress        bool `mapstructure:"reuse_address" yaml:"reuse_address"`
	UseServerHeader     bool `mapstructure:"use_server_header" yaml:"use_server_header"`
	UseDateHeader       bool `mapstructure:"use_date_header" yaml:"use_date_header"`
	UseForwardedHeaders bool `mapstructure:"use_forwarded_headers" yaml:"use_forwarded_headers"`

	// AdminUsername and AdminPassword protect the admin connector with
	// basic authentication when set.
	AdminUsername string `mapstructure:"admin_username" yaml:"admin_username,omitempty"`
	AdminPassword string `mapstructure:"admin_password" yaml:"admin_password,omitempty"`

	// ContextParameters are handed to the environment verbatim.
	ContextParameters map[string]string `mapstructure:"context_parameters" yaml:"context_parameters,omitempty"`

	Gzip       GzipConfig       `mapstructure:"gzip" yaml:"gzip"`
	SSL        *SSLConfig       `mapstructure:"ssl" yaml:"ssl,omitempty" validate:"omitempty"`
	RequestLog RequestLogConfig `mapstructure:"request_log" yaml:"request_log"`
}

// DefaultHTTP returns the http section defaults.
func DefaultHTTP() HTTPConfig {
	return HTTPConfig{
		Port:                    8080,
		AdminPort:               8081,
		RootPath:                "/*",
		ConnectorType:           Blocking,
		MaxThreads:              254,
		MinThreads:              8,
		MaxIdleTime:             200 * time.Second,
		ReadHeaderTimeout:       30 * time.Second,
		RequestHeaderBufferSize: 6 * Kilobyte,
		ShutdownGracePeriod:     2 * time.Second,
		ReuseAddress:            true,
		UseDateHeader:           true,
		UseForwardedHeaders:     true,
		Gzip:                    DefaultGzip(),
		RequestLog:              DefaultRequestLog(),
	}
}

// RoutePrefix returns RootPath without its trailing wildcard or slash; the
// result is empty for the root.
func (c *HTTPConfig) RoutePrefix() string {
	p := strings.TrimSuffix(c.RootPath, "*")
	return strings.TrimSuffix(p, "/")
}

// GzipConfig configures response compression.
type GzipConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MinimumEntitySize leaves smaller responses uncompressed.
	MinimumEntitySize Size `mapstructure:"minimum_entity_size" yaml:"minimum_entity_size,omitempty"`

	// ExcludedUserAgents never receive compressed responses.
	ExcludedUserAgents []string `mapstructure:"excluded_user_agents" yaml:"excluded_user_agents,omitempty"`

	// CompressedMimeTypes restricts compression to these types. When
	// empty, every type except already compressed ones is eligible.
	CompressedMimeTypes []string `mapstructure:"compressed_mime_types" yaml:"compressed_mime_types,omitempty"`
}

// DefaultGzip returns the gzip defaults.
func DefaultGzip() GzipConfig {
	return GzipConfig{Enabled: true, MinimumEntitySize: 256 * Byte}
}

// SSLConfig configures TLS for the +ssl connector types.
type SSLConfig struct {
	// CertFile is a PEM encoded certificate chain.
	CertFile string `mapstructure:"cert_file" yaml:"cert_file" validate:"required"`

	// KeyFile is the PEM encoded private key of CertFile.
	KeyFile string `mapstructure:"key_file" yaml:"key_file" validate:"required"`

	// SupportedProtocols lists the enabled protocol versions.
	SupportedProtocols []string `mapstructure:"supported_protocols" yaml:"supported_protocols" validate:"required,min=1,dive,oneof=TLSv1.2 TLSv1.3"`
}

// DefaultSupportedProtocols are used when an ssl section omits them.
func DefaultSupportedProtocols() []string {
	return []string{"TLSv1.2", "TLSv1.3"}
}
