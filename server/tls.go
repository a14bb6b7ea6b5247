package server

import (
	"crypto/tls"
	"fmt"

	"go.tickamp.dev/bootstrap/config"
)

var protocols = map[string]uint16{
	"TLSv1.2": tls.VersionTLS12,
	"TLSv1.3": tls.VersionTLS13,
}

// newTLSConfig loads the certificate of cfg and restricts the protocol
// versions to the supported ones.
func newTLSConfig(cfg *config.SSLConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing ssl configuration")
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	supported := cfg.SupportedProtocols
	if len(supported) == 0 {
		supported = config.DefaultSupportedProtocols()
	}
	var min, max uint16
	for _, p := range supported {
		v, ok := protocols[p]
		if !ok {
			return nil, fmt.Errorf("unsupported protocol %q", p)
		}
		if min == 0 || v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   min,
		MaxVersion:   max,
		NextProtos:   []string{"h2", "http/1.1"},
	}, nil
}
