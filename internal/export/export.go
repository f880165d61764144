// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package export serializes decrypted vault entries into a portable backup
// document. The plain format is gzip-compressed JSON; the encrypted format
// additionally seals the compressed document under a passphrase-derived key.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/verdantfox/strongbox/internal/kdf"
	"github.com/verdantfox/strongbox/internal/model"
)

// FormatVersion identifies the document layout for future readers.
const FormatVersion = 1

// magic prefixes an encrypted export so readers can tell the formats apart.
var magic = []byte("SBOX1")

// ErrBadFormat is returned when a blob is not a recognizable export.
var ErrBadFormat = errors.New("not a strongbox export")

// Document is the top-level export structure.
type Document struct {
	Version    int                    `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	Entries    []model.PlaintextEntry `json:"entries"`
}

// Encode produces a gzip-compressed JSON export of the given entries.
func Encode(entries []model.PlaintextEntry) ([]byte, error) {
	doc := Document{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC(),
		Entries:    entries,
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress export: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a plain export blob.
func Decode(blob []byte) (*Document, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, ErrBadFormat
	}
	defer func() { _ = zr.Close() }()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress export: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	return &doc, nil
}

// EncodeEncrypted produces magic || salt || sealed(gzip JSON), sealed under a
// key derived from the passphrase with the given cost parameters. The
// passphrase is independent of the vault's master password.
func EncodeEncrypted(entries []model.PlaintextEntry, passphrase string, p kdf.Params) ([]byte, error) {
	plain, err := Encode(entries)
	if err != nil {
		return nil, err
	}
	salt, err := kdf.NewSalt()
	if err != nil {
		return nil, err
	}
	key := kdf.Derive([]byte(passphrase), salt, p)
	sealed, err := kdf.Seal(key, plain)
	for i := range key {
		key[i] = 0
	}
	if err != nil {
		return nil, fmt.Errorf("failed to seal export: %w", err)
	}

	out := make([]byte, 0, len(magic)+len(salt)+len(sealed))
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, sealed...)
	return out, nil
}

// DecodeEncrypted opens an encrypted export with the passphrase it was
// sealed under.
func DecodeEncrypted(blob []byte, passphrase string, p kdf.Params) (*Document, error) {
	if len(blob) < len(magic)+kdf.SaltLen || !bytes.HasPrefix(blob, magic) {
		return nil, ErrBadFormat
	}
	salt := blob[len(magic) : len(magic)+kdf.SaltLen]
	sealed := blob[len(magic)+kdf.SaltLen:]

	key := kdf.Derive([]byte(passphrase), salt, p)
	plain, err := kdf.Open(key, sealed)
	for i := range key {
		key[i] = 0
	}
	if err != nil {
		return nil, err
	}
	return Decode(plain)
}
