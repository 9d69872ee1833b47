/*-------------------------------------------------------------------------
 *
 * jobs-feed - Secret Encryption
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package crypto protects database passwords kept in configuration files.
// Passwords are sealed with AES-256-GCM under a key stored base64-encoded
// in a secret file readable only by its owner.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// KeySize is the secret key length in bytes (AES-256)
const KeySize = 32

var (
	// ErrInsecureKeyFile is returned when a secret file is readable by
	// anyone other than its owner
	ErrInsecureKeyFile = errors.New("insecure permissions on secret file")

	// ErrCiphertextTooShort is returned for input shorter than a GCM nonce
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// SecretKey is an AES-256 key used to seal configuration secrets
type SecretKey struct {
	key []byte
}

// GenerateKey returns a new random key
func GenerateKey() (*SecretKey, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return &SecretKey{key: key}, nil
}

// LoadKeyFromFile reads a key written by SaveToFile. The file must have
// 0600 permissions.
func LoadKeyFromFile(path string) (*SecretKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secret file: %w", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		return nil, fmt.Errorf("%w %s: %04o (expected 0600)", ErrInsecureKeyFile, path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret file: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret file: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: expected %d bytes, got %d", KeySize, len(key))
	}

	return &SecretKey{key: key}, nil
}

// SaveToFile writes the key base64-encoded with owner-only permissions
func (k *SecretKey) SaveToFile(path string) error {
	encoded := base64.StdEncoding.EncodeToString(k.key)
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write secret file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to restrict secret file: %w", err)
	}
	return nil
}

func (k *SecretKey) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
// An empty plaintext encrypts to an empty string.
func (k *SecretKey) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	aead, err := k.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (k *SecretKey) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aead, err := k.gcm()
	if err != nil {
		return "", err
	}

	n := aead.NonceSize()
	if len(data) < n {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
