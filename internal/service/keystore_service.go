package service

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
)

const publicKeyPEMType = "PUBLIC KEY"

// sealedKey is the at-rest form of the private key: PKCS#8 DER wrapped in
// the same passphrase envelope as the vault, with its own salt and IV.
type sealedKey struct {
	Ciphertext string `json:"ciphertext"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
}

type fileKeyStore struct {
	publicPath  string
	privatePath string
}

// NewFileKeyStore creates a key store that keeps the PEM public key at
// publicPath and the sealed private key at privatePath.
func NewFileKeyStore(publicPath, privatePath string) ports.KeyStore {
	return &fileKeyStore{publicPath: publicPath, privatePath: privatePath}
}

func (s *fileKeyStore) Generate(passphrase string) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("generating key pair: %w", err))
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("encoding private key: %w", err))
	}
	ciphertext, salt, iv, err := sealEnvelope(privDER, passphrase)
	if err != nil {
		return apperror.InternalError(err)
	}
	sealed, err := json.MarshalIndent(sealedKey{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, "", "  ")
	if err != nil {
		return apperror.InternalError(fmt.Errorf("encoding sealed key: %w", err))
	}

	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("encoding public key: %w", err))
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: publicKeyPEMType, Bytes: pubDER})

	for _, dir := range []string{filepath.Dir(s.publicPath), filepath.Dir(s.privatePath)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return apperror.InternalError(fmt.Errorf("creating key directory: %w", err))
		}
	}
	if err := os.WriteFile(s.privatePath, sealed, 0o600); err != nil {
		return apperror.InternalError(fmt.Errorf("writing private key: %w", err))
	}
	if err := os.WriteFile(s.publicPath, pubPEM, 0o644); err != nil {
		return apperror.InternalError(fmt.Errorf("writing public key: %w", err))
	}
	return nil
}

// LoadPrivate deliberately returns a plain error on a bad passphrase.
// DECRYPT_FAILED is reserved for the vault; a key-open failure during
// approval must stay retryable.
func (s *fileKeyStore) LoadPrivate(passphrase string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(s.privatePath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	var sealed sealedKey
	if err := json.Unmarshal(raw, &sealed); err != nil {
		return nil, fmt.Errorf("parsing private key file: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("parsing private key file: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(sealed.Salt)
	if err != nil {
		return nil, fmt.Errorf("parsing private key file: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(sealed.IV)
	if err != nil {
		return nil, fmt.Errorf("parsing private key file: %w", err)
	}

	privDER, err := openEnvelope(ciphertext, salt, iv, passphrase)
	if err != nil {
		return nil, fmt.Errorf("opening private key: %w", err)
	}
	key, err := x509.ParsePKCS8PrivateKey(privDER)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not Ed25519")
	}
	return priv, nil
}

func (s *fileKeyStore) LoadPublic() (ed25519.PublicKey, error) {
	raw, err := os.ReadFile(s.publicPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	pub, err := parsePublicKeyPEM(raw)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// parsePublicKeyPEM decodes a PKIX PEM block into an Ed25519 public key.
func parsePublicKeyPEM(raw []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != publicKeyPEMType {
		return nil, fmt.Errorf("no public key PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not Ed25519")
	}
	return pub, nil
}
