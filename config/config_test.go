package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceConfig struct {
	Configuration `mapstructure:",squash" yaml:",inline"`
	Saying        string `mapstructure:"saying" yaml:"saying" validate:"required"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := &serviceConfig{}
	path := writeConfig(t, "saying: hello\n")
	require.NoError(t, Load(path, "", cfg))

	assert.Equal(t, "hello", cfg.Saying)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 8081, cfg.HTTP.AdminPort)
	assert.Equal(t, Blocking, cfg.HTTP.ConnectorType)
	assert.Equal(t, 254, cfg.HTTP.MaxThreads)
	assert.Equal(t, 200*time.Second, cfg.HTTP.MaxIdleTime)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadHeaderTimeout)
	assert.Equal(t, 6*Kilobyte, cfg.HTTP.RequestHeaderBufferSize)
	assert.True(t, cfg.HTTP.Gzip.Enabled)
	assert.True(t, cfg.HTTP.UseDateHeader)
	assert.Equal(t, LevelInfo, cfg.Logging.Level)
	assert.Nil(t, cfg.HTTP.SSL)
}

func TestLoadOverrides(t *testing.T) {
	cfg := &serviceConfig{}
	path := writeConfig(t, `
saying: hi
http:
  port: 9000
  connector_type: NonBlocking
  max_idle_time: 30s
  request_header_buffer_size: 8KiB
  use_date_header: false
  gzip:
    enabled: false
    minimum_entity_size: 2KB
  context_parameters:
    env: test
logging:
  level: debug
  loggers:
    server: warn
`)
	require.NoError(t, Load(path, "", cfg))

	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 8081, cfg.HTTP.AdminPort)
	assert.Equal(t, NonBlocking, cfg.HTTP.ConnectorType)
	assert.Equal(t, 30*time.Second, cfg.HTTP.MaxIdleTime)
	assert.Equal(t, 8*Kilobyte, cfg.HTTP.RequestHeaderBufferSize)
	assert.False(t, cfg.HTTP.UseDateHeader)
	assert.False(t, cfg.HTTP.Gzip.Enabled)
	assert.Equal(t, Size(2000), cfg.HTTP.Gzip.MinimumEntitySize)
	assert.Equal(t, map[string]string{"env": "test"}, cfg.HTTP.ContextParameters)
	assert.Equal(t, LevelDebug, cfg.Logging.Level)
	assert.Equal(t, map[string]string{"server": LevelWarn}, cfg.Logging.Loggers)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("HELLO_HTTP_ADMIN_PORT", "9191")
	t.Setenv("HELLO_SAYING", "from env")

	cfg := &serviceConfig{}
	require.NoError(t, Load(writeConfig(t, "saying: hello\n"), "HELLO", cfg))
	assert.Equal(t, 9191, cfg.HTTP.AdminPort)
	assert.Equal(t, "from env", cfg.Saying)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg := &Configuration{}
	require.NoError(t, Load("", "", cfg))
	assert.Equal(t, Default(), *cfg)
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "missing.yml"), "", &Configuration{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadSSLDefaults(t *testing.T) {
	cfg := &Configuration{}
	path := writeConfig(t, `
http:
  connector_type: nonblocking+ssl
  ssl:
    cert_file: /tmp/cert.pem
    key_file: /tmp/key.pem
`)
	require.NoError(t, Load(path, "", cfg))
	require.NotNil(t, cfg.HTTP.SSL)
	assert.Equal(t, DefaultSupportedProtocols(), cfg.HTTP.SSL.SupportedProtocols)
	assert.True(t, cfg.HTTP.ConnectorType.IsSSL())
	assert.False(t, cfg.HTTP.ConnectorType.LimitsConnections())
}

func TestValidateReportsEveryViolation(t *testing.T) {
	cfg := &serviceConfig{Configuration: Default()}
	cfg.HTTP.Port = 70000
	cfg.HTTP.ConnectorType = LegacySSL
	cfg.HTTP.MinThreads = 300
	cfg.HTTP.AdminPassword = "secret"
	cfg.Logging.File.Enabled = true

	err := Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "http.port")
	assert.Contains(t, msg, "saying")
	assert.Contains(t, msg, "must have an SSL configuration when using SSL connection")
	assert.Contains(t, msg, "must have a smaller min_threads than max_threads")
	assert.Contains(t, msg, "must have admin_username if admin_password is defined")
	assert.Contains(t, msg, "must have current_log_filename")
}

func TestValidateDefaults(t *testing.T) {
	cfg := Default()
	assert.NoError(t, Validate(&cfg))
}

func TestValidateSSLProtocols(t *testing.T) {
	cfg := Default()
	cfg.HTTP.ConnectorType = NonBlockingSSL
	cfg.HTTP.SSL = &SSLConfig{CertFile: "c", KeyFile: "k", SupportedProtocols: []string{"SSLv3"}}
	err := Validate(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported_protocols")
}

func TestRoutePrefix(t *testing.T) {
	for root, want := range map[string]string{
		"/*":       "",
		"/":        "",
		"/api/*":   "/api",
		"/api":     "/api",
		"/api/v1/": "/api/v1",
	} {
		h := HTTPConfig{RootPath: root}
		assert.Equal(t, want, h.RoutePrefix(), root)
	}
}

func TestParseSize(t *testing.T) {
	s, err := ParseSize("6KiB")
	require.NoError(t, err)
	assert.Equal(t, 6*Kilobyte, s)
	assert.Equal(t, 6144, s.Bytes())
	assert.Equal(t, "6.0 KiB", s.String())

	_, err = ParseSize("lots")
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	cfg := &serviceConfig{Configuration: Default(), Saying: "hello"}
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, cfg))

	out := buf.String()
	assert.Contains(t, out, "saying: hello")
	assert.Contains(t, out, "port: 8080")
	assert.Contains(t, out, "request_header_buffer_size: 6.0 KiB")
	assert.Contains(t, out, "max_idle_time: 3m20s")
}
