package app

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/govsignin/accountsvc/pkg/cryptox"
)

// InitEncryptionKey loads the RSA key the api authorize variant uses to
// unwrap encrypted request objects, generating and persisting one on first
// start. The key file holds the PEM encrypted under the master key, so a
// leaked volume does not leak the key.
func InitEncryptionKey(cfg Config, logger *slog.Logger) (*rsa.PrivateKey, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	encrypted, err := os.ReadFile(cfg.EncryptionKeyFile)
	switch {
	case err == nil:
		pemData, err := cryptox.DecryptPrivateKey(encrypted)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt request-object key: %w", err)
		}
		key, err := cryptox.ParseRSAPrivateKey(pemData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse request-object key: %w", err)
		}
		logger.Info("request-object decryption key loaded", "path", cfg.EncryptionKeyFile)
		return key, nil

	case errors.Is(err, fs.ErrNotExist):
		pemData, err := cryptox.GenerateRSAKey(cfg.RSABits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate request-object key: %w", err)
		}
		encrypted, err := cryptox.EncryptPrivateKey(pemData)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt request-object key: %w", err)
		}
		if err := os.WriteFile(cfg.EncryptionKeyFile, encrypted, 0o600); err != nil {
			return nil, fmt.Errorf("failed to persist request-object key: %w", err)
		}
		key, err := cryptox.ParseRSAPrivateKey(pemData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse request-object key: %w", err)
		}
		logger.Info("request-object decryption key generated",
			"path", cfg.EncryptionKeyFile,
			"bits", cfg.RSABits,
		)
		return key, nil

	default:
		return nil, fmt.Errorf("failed to read request-object key: %w", err)
	}
}
