package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"solar-system-ai/internal/config"
)

// setupTLS returns a TLS config backed by ACME certificates for the
// configured hosts, or nil when no hosts are configured. Certificates are
// obtained with the TLS-ALPN challenge, so port 443 must reach this
// listener.
func setupTLS(cfg config.TLSConfig, logger *zap.Logger) (*tls.Config, error) {
	if len(cfg.Hosts) == 0 {
		return nil, nil
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = "certs"
	}
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create certs directory: %w", err)
	}

	allowed := autocert.HostWhitelist(cfg.Hosts...)
	manager := &autocert.Manager{
		Cache:  autocert.DirCache(cacheDir),
		Prompt: autocert.AcceptTOS,
		HostPolicy: func(ctx context.Context, host string) error {
			if err := allowed(ctx, host); err != nil {
				logger.Warn("Rejecting certificate request", zap.String("host", host))
				return err
			}
			logger.Info("Accepting certificate request", zap.String("host", host))
			return nil
		},
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12
	tlsConfig.CurvePreferences = []tls.CurveID{tls.X25519, tls.CurveP256}
	return tlsConfig, nil
}
