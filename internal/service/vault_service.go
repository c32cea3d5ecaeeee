package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
)

type vaultService struct {
	path string
}

// NewVaultService creates a vault that stores the encrypted billing
// credentials at path.
func NewVaultService(path string) ports.VaultService {
	return &vaultService{path: path}
}

func (s *vaultService) Encrypt(credentials *domain.BillingCredentials, passphrase string) (*domain.EncryptedVault, error) {
	plaintext, err := json.Marshal(credentials)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encoding credentials: %w", err))
	}

	ciphertext, salt, iv, err := sealEnvelope(plaintext, passphrase)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	return &domain.EncryptedVault{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt returns the same opaque failure for every problem so the error
// reveals nothing about which part of the envelope was wrong.
func (s *vaultService) Decrypt(vault *domain.EncryptedVault, passphrase string) (*domain.BillingCredentials, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(vault.Ciphertext)
	if err != nil {
		return nil, apperror.ErrDecryptFailed()
	}
	salt, err := base64.StdEncoding.DecodeString(vault.Salt)
	if err != nil {
		return nil, apperror.ErrDecryptFailed()
	}
	iv, err := base64.StdEncoding.DecodeString(vault.IV)
	if err != nil {
		return nil, apperror.ErrDecryptFailed()
	}

	plaintext, err := openEnvelope(ciphertext, salt, iv, passphrase)
	if err != nil {
		return nil, apperror.ErrDecryptFailed()
	}

	var credentials domain.BillingCredentials
	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		return nil, apperror.ErrDecryptFailed()
	}
	return &credentials, nil
}

func (s *vaultService) Save(vault *domain.EncryptedVault) error {
	raw, err := json.MarshalIndent(vault, "", "  ")
	if err != nil {
		return apperror.InternalError(fmt.Errorf("encoding vault: %w", err))
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return apperror.InternalError(fmt.Errorf("creating vault directory: %w", err))
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return apperror.InternalError(fmt.Errorf("writing vault: %w", err))
	}
	return nil
}

func (s *vaultService) Load() (*domain.EncryptedVault, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperror.ErrNotSetup()
	}
	var vault domain.EncryptedVault
	if err := json.Unmarshal(raw, &vault); err != nil {
		return nil, apperror.ErrNotSetup()
	}
	return &vault, nil
}

func (s *vaultService) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
