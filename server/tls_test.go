package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.tickamp.dev/bootstrap/config"
)

func TestTLSConfig(t *testing.T) {
	cert, key := writeCertificate(t)

	cfg, err := newTLSConfig(&config.SSLConfig{CertFile: cert, KeyFile: key})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MaxVersion)
	assert.Len(t, cfg.Certificates, 1)

	cfg, err = newTLSConfig(&config.SSLConfig{CertFile: cert, KeyFile: key, SupportedProtocols: []string{"TLSv1.3"}})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
}

func TestTLSConfigErrors(t *testing.T) {
	cert, key := writeCertificate(t)

	_, err := newTLSConfig(nil)
	assert.Error(t, err)

	_, err = newTLSConfig(&config.SSLConfig{CertFile: cert, KeyFile: key, SupportedProtocols: []string{"SSLv3"}})
	assert.ErrorContains(t, err, `unsupported protocol "SSLv3"`)

	_, err = newTLSConfig(&config.SSLConfig{CertFile: key, KeyFile: cert})
	assert.ErrorContains(t, err, "failed to load certificate")
}

// writeCertificate writes a self-signed certificate for 127.0.0.1 and returns
// the paths of the certificate and of its key.
func writeCertificate(t *testing.T) (string, string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)

	dir := t.TempDir()
	cert := filepath.Join(dir, "server.crt")
	key := filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(cert, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(key, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return cert, key
}
