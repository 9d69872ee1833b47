/*-------------------------------------------------------------------------
 *
 * jobs-feed - Secret Encryption
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if len(key.key) != KeySize {
		t.Errorf("Expected key size %d, got %d", KeySize, len(key.key))
	}

	other, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	if string(key.key) == string(other.key) {
		t.Error("Expected different keys, got identical keys")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	passwords := []string{
		"hunter2",
		"P@ss:w/rd?#with&url=chars",
		"пароль密码",
		"",
	}

	for _, plaintext := range passwords {
		t.Run(fmt.Sprintf("%q", plaintext), func(t *testing.T) {
			sealed, err := key.Encrypt(plaintext)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}
			if plaintext == "" {
				if sealed != "" {
					t.Errorf("Expected empty ciphertext, got %q", sealed)
				}
				return
			}
			if sealed == plaintext {
				t.Error("Ciphertext should not match plaintext")
			}

			opened, err := key.Decrypt(sealed)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}
			if opened != plaintext {
				t.Errorf("Decrypt = %q, want %q", opened, plaintext)
			}
		})
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	key, _ := GenerateKey()

	a, _ := key.Encrypt("same")
	b, _ := key.Encrypt("same")
	if a == b {
		t.Error("Expected different ciphertexts for the same plaintext")
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()

	sealed, err := key1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := key2.Decrypt(sealed); err == nil {
		t.Error("Expected decryption to fail with wrong key")
	}
}

func TestDecryptInvalidCiphertext(t *testing.T) {
	key, _ := GenerateKey()

	if _, err := key.Decrypt("not-valid-base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := key.Decrypt("YWJj"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("Expected ErrCiphertextTooShort, got %v", err)
	}
	if _, err := key.Decrypt("YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXo="); err == nil {
		t.Error("Expected error for corrupted ciphertext")
	}
}

func TestSaveAndLoadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs-feed.secret")

	original, _ := GenerateKey()
	if err := original.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat key file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions 0600, got %o", info.Mode().Perm())
	}

	loaded, err := LoadKeyFromFile(path)
	if err != nil {
		t.Fatalf("LoadKeyFromFile failed: %v", err)
	}

	sealed, _ := original.Encrypt("db-password")
	opened, err := loaded.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt with loaded key failed: %v", err)
	}
	if opened != "db-password" {
		t.Errorf("Decrypt = %q, want db-password", opened)
	}
}

func TestLoadKeyFromInvalidFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		write   bool
	}{
		{"missing", "", false},
		{"invalid base64", "not-valid-base64!", true},
		{"wrong size", "YWJjZGVm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".secret")
			if tt.write {
				if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
					t.Fatalf("Failed to write test file: %v", err)
				}
			}
			if _, err := LoadKeyFromFile(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadKeyWithInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insecure.secret")

	key, _ := GenerateKey()
	if err := key.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	for _, perm := range []os.FileMode{0644, 0640, 0604, 0666} {
		t.Run(fmt.Sprintf("mode_%04o", perm), func(t *testing.T) {
			if err := os.Chmod(path, perm); err != nil {
				t.Fatalf("Failed to change permissions: %v", err)
			}
			if _, err := LoadKeyFromFile(path); !errors.Is(err, ErrInsecureKeyFile) {
				t.Errorf("Expected ErrInsecureKeyFile for %04o, got %v", perm, err)
			}
		})
	}
}
