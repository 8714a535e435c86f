package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"shopify-customer-sync/internal/ports"
)

// prefix marks values written by this service; anything else is treated as a legacy plaintext token
const prefix = "enc:v1:"

// AESService encrypts tokens with AES-256-GCM and stores them as enc:v1:base64url(nonce|ciphertext)
type AESService struct {
	aead cipher.AEAD
}

var _ ports.EncryptionService = (*AESService)(nil)

// LoadKeyFromBase64 decodes a standard base64 key that must be 32 bytes long
func LoadKeyFromBase64(b64 string) ([]byte, error) {
	k, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(k) != 32 {
		return nil, errors.New("ENCRYPTION_KEY must decode to 32 bytes")
	}
	return k, nil
}

// NewAESService creates an AES-256-GCM encryption service
func NewAESService(key []byte) (*AESService, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &AESService{aead: gcm}, nil
}

// Encrypt seals plaintext under a fresh random nonce
func (s *AESService) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ct := s.aead.Seal(nil, nonce, []byte(plaintext), nil)
	out := append(nonce, ct...)
	return prefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt; unprefixed values are returned unchanged
func (s *AESService) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ciphertext too short")
	}

	pt, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(pt), nil
}
