package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Files locates the PEM files for a TLS listener
type Files struct {
	Cert string // this service's certificate
	Key  string // this service's private key
	CA   string // optional; when set, clients must present a cert signed by it
}

// Enabled reports whether a certificate was configured
func (f Files) Enabled() bool {
	return f.Cert != ""
}

// LoadServerTLS creates a tls.Config for a gRPC server.
// With a CA file the server requires client certs (mTLS).
func LoadServerTLS(files Files) (*tls.Config, error) {
	if files.Cert == "" || files.Key == "" {
		return nil, fmt.Errorf("both certificate and key are required")
	}

	cert, err := tls.LoadX509KeyPair(files.Cert, files.Key)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if files.CA != "" {
		pool, err := loadPool(files.CA)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, nil
}

func loadPool(caFile string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}
