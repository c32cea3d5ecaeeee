package service

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
)

type mandateService struct{}

// NewMandateService creates the Ed25519 purchase mandate service.
func NewMandateService() ports.MandateService {
	return &mandateService{}
}

// Create signs the canonical hash of the details. The signature covers the
// ASCII hex digest, so the mandate binds to the exact canonical encoding.
func (s *mandateService) Create(details domain.TransactionDetails, key ed25519.PrivateKey) (*domain.PurchaseMandate, error) {
	hash := details.CanonicalHash()
	signature := ed25519.Sign(key, []byte(hash))

	pubDER, err := x509.MarshalPKIXPublicKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encoding public key: %w", err))
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: publicKeyPEMType, Bytes: pubDER})

	return &domain.PurchaseMandate{
		TxID:      details.TxID,
		TxHash:    hash,
		Signature: base64.StdEncoding.EncodeToString(signature),
		PublicKey: string(pubPEM),
		Timestamp: time.Now().UTC(),
	}, nil
}

// Verify recomputes the canonical hash from details and checks the mandate
// against its embedded public key. Any malformed field is a verification
// failure, never an error.
func (s *mandateService) Verify(mandate *domain.PurchaseMandate, details domain.TransactionDetails) bool {
	if mandate == nil {
		return false
	}
	hash := details.CanonicalHash()
	if mandate.TxHash != hash {
		return false
	}
	pub, err := parsePublicKeyPEM([]byte(mandate.PublicKey))
	if err != nil {
		return false
	}
	signature, err := base64.StdEncoding.DecodeString(mandate.Signature)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub, []byte(hash), signature)
}

// VerifyPinned additionally requires the mandate's embedded key to equal
// the pinned setup-time key, so a mandate signed by any other key fails
// even if its signature is internally consistent.
func (s *mandateService) VerifyPinned(mandate *domain.PurchaseMandate, details domain.TransactionDetails, pinned ed25519.PublicKey) bool {
	if mandate == nil || pinned == nil {
		return false
	}
	pub, err := parsePublicKeyPEM([]byte(mandate.PublicKey))
	if err != nil {
		return false
	}
	if !pub.Equal(pinned) {
		return false
	}
	return s.Verify(mandate, details)
}
