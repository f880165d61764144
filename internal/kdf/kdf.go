// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package kdf is the key derivation service. It turns the master password
// into key material with Argon2id, generates and wraps the vault's data key,
// and builds the login verifier. The verifier and the wrapping key are
// derived from the same password with independent salts, so a password change
// only requires re-wrapping one key, never re-encrypting the vault.
package kdf

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// KeyLen is the length of all derived and generated keys (AES-256).
	KeyLen = 32
	// SaltLen is the length of verifier and wrapping salts.
	SaltLen = 16
)

// ErrKeyUnwrap is returned when a wrapped data key cannot be opened. A wrong
// wrapping key and a corrupted blob are deliberately indistinguishable.
var ErrKeyUnwrap = errors.New("failed to unwrap data key")

// Params are the Argon2id cost parameters. They come from the vault's
// security policy and must stay fixed for the lifetime of a salt.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// Derive computes a 32-byte Argon2id key from password and salt. The same
// inputs always produce the same output; distinct salts produce statistically
// independent outputs.
func Derive(password, salt []byte, p Params) []byte {
	return argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, KeyLen)
}

// NewSalt returns a fresh random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// NewDataKey returns a fresh random data-encryption key.
func NewDataKey() ([]byte, error) {
	key := make([]byte, KeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	return key, nil
}

// Wrap seals the data key under the wrapping key. The result is an opaque
// blob (nonce plus ciphertext plus tag) safe to persist.
func Wrap(dataKey, wrappingKey []byte) ([]byte, error) {
	blob, err := Seal(wrappingKey, dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}
	return blob, nil
}

// Unwrap opens a wrapped data key blob. It returns ErrKeyUnwrap for a wrong
// wrapping key and for a tampered blob alike, so callers cannot build an
// oracle out of the difference.
func Unwrap(blob, wrappingKey []byte) ([]byte, error) {
	key, err := Open(wrappingKey, blob)
	if err != nil {
		return nil, ErrKeyUnwrap
	}
	return key, nil
}

// MakeVerifier derives the one-way login verifier for a password. The salt
// must be independent of the wrapping salt; the verifier is never used as an
// encryption key.
func MakeVerifier(password, salt []byte, p Params) []byte {
	return Derive(password, salt, p)
}

// CheckVerifier reports whether password matches the stored verifier. The
// comparison is constant-time.
func CheckVerifier(password, salt, verifier []byte, p Params) bool {
	candidate := Derive(password, salt, p)
	return subtle.ConstantTimeCompare(candidate, verifier) == 1
}
