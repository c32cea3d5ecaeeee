// Package service implements the core application services behind the
// interfaces in internal/core/ports.
package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Passphrase envelope parameters. These are part of the on-disk format:
// changing any of them makes existing vaults unreadable.
const (
	envelopeIterations = 100000
	envelopeSaltSize   = 32
	envelopeIVSize     = 16
	envelopeKeySize    = 32
)

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, envelopeIterations, envelopeKeySize, sha512.New)
}

// sealEnvelope encrypts plaintext with a key derived from passphrase under
// a fresh salt and IV. The returned ciphertext carries the GCM auth tag
// appended to it.
func sealEnvelope(plaintext []byte, passphrase string) (ciphertext, salt, iv []byte, err error) {
	salt = make([]byte, envelopeSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, nil, nil, fmt.Errorf("generating salt: %w", err)
	}
	iv = make([]byte, envelopeIVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, nil, fmt.Errorf("generating iv: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCMWithNonceSize(block, envelopeIVSize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating GCM: %w", err)
	}

	return aesGCM.Seal(nil, iv, plaintext, nil), salt, iv, nil
}

// openEnvelope reverses sealEnvelope. It returns an error on any failure,
// including a wrong passphrase; callers decide how much of that to expose.
func openEnvelope(ciphertext, salt, iv []byte, passphrase string) ([]byte, error) {
	if len(salt) != envelopeSaltSize || len(iv) != envelopeIVSize {
		return nil, fmt.Errorf("malformed envelope")
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCMWithNonceSize(block, envelopeIVSize)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	plaintext, err := aesGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("opening envelope: %w", err)
	}
	return plaintext, nil
}
