// Package config implements server/client configuration: the JSON config
// document, the password/salt files used to seal it at rest, and the
// test-environment flag that relaxes timers for local development.
package config

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// PlaintextPasswordFile is the local file holding the password used to
	// decrypt the sealed server config on startup. Its absence means the
	// server has never been configured and must enter config-generation
	// mode.
	PlaintextPasswordFile = "password"
	// SaltFile holds the random salt generated the first time a server is
	// configured, used to derive the sealing key from the password.
	SaltFile = "salt"

	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

// RandomSalt returns a fresh random salt suitable for SaltFile.
func RandomSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("config: generate salt: %w", err)
	}
	return salt, nil
}

// deriveKey stretches password+salt into a secretbox key via argon2id.
func deriveKey(password string, salt []byte) [keySize]byte {
	derived := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, keySize)
	var key [keySize]byte
	copy(key[:], derived)
	return key
}

// Seal encrypts plaintext (the server config JSON) under a key derived
// from password and salt, prefixing the output with a fresh random nonce.
func Seal(plaintext []byte, password string, salt []byte) ([]byte, error) {
	key := deriveKey(password, salt)

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("config: generate nonce: %w", err)
	}

	out := make([]byte, 0, nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plaintext, &nonce, &key)
	return out, nil
}

// Open decrypts a blob produced by Seal.
func Open(sealed []byte, password string, salt []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("config: sealed config too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	key := deriveKey(password, salt)
	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("config: decryption failed (wrong password or corrupted file)")
	}
	return plaintext, nil
}

// SealJSON is a convenience wrapper around Seal for any JSON-marshalable
// value.
func SealJSON(v any, password string, salt []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return Seal(plaintext, password, salt)
}

// OpenJSON is the inverse of SealJSON.
func OpenJSON(sealed []byte, password string, salt []byte, v any) error {
	plaintext, err := Open(sealed, password, salt)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
