// Package crypto seals provider API keys stored on api_configurations rows.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// sealedPrefix versions the stored format: "v1:" + base64(nonce || ciphertext || tag).
const sealedPrefix = "v1:"

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("invalid encryption key: must not be empty")
	// ErrDecryptionFailed is returned for malformed ciphertext, a wrong key,
	// or a key sealed for a different organization.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// KeySealer encrypts API keys with AES-256-GCM. The organization ID is bound
// as associated data, so a sealed key copied to another tenant's row fails to open.
type KeySealer struct {
	gcm cipher.AEAD
}

// NewKeySealer creates a sealer from a key string. A base64 value that decodes
// to exactly 32 bytes is used directly; anything else is treated as a passphrase
// and hashed with SHA-256.
func NewKeySealer(keyInput string) (*KeySealer, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	key, err := base64.StdEncoding.DecodeString(keyInput)
	if err != nil || len(key) != 32 {
		sum := sha256.Sum256([]byte(keyInput))
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &KeySealer{gcm: gcm}, nil
}

// Seal encrypts apiKey for organizationID. An empty key seals to "".
func (s *KeySealer) Seal(organizationID uuid.UUID, apiKey string) (string, error) {
	if apiKey == "" {
		return "", nil
	}

	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.gcm.Seal(nonce, nonce, []byte(apiKey), organizationID[:])
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal for the same organization.
func (s *KeySealer) Open(organizationID uuid.UUID, sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}

	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", fmt.Errorf("%w: unknown format", ErrDecryptionFailed)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}

	nonceSize := s.gcm.NonceSize()
	if len(data) < nonceSize+s.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	plaintext, err := s.gcm.Open(nil, data[:nonceSize], data[nonceSize:], organizationID[:])
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	return string(plaintext), nil
}
