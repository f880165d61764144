// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model defines the core data structures for Strongbox. These are the
// persistence-facing types shared between the storage layer and the services
// built on top of it. Plaintext secret material never appears here; entries
// carry ciphertext only.
package model

import (
	"strings"
	"time"
)

// Account is a vault user. The verifier authenticates logins; the wrapped
// data key is the vault encryption key sealed under a key derived from the
// same password with an independent salt. Neither ever stores the password.
type Account struct {
	ID             int64
	Username       string
	Verifier       []byte
	VerifierSalt   []byte
	WrappedDataKey []byte
	WrapSalt       []byte
	FailedAttempts int
	LockedUntil    *time.Time
	MFASeed        string
	Permissions    string
	CreatedAt      time.Time
}

// HasPermission reports whether the account carries the given capability tag.
// Permissions are stored as a comma-joined list (e.g. "user" or "admin,user").
func (a *Account) HasPermission(perm string) bool {
	for _, p := range strings.Split(a.Permissions, ",") {
		if strings.TrimSpace(p) == perm {
			return true
		}
	}
	return false
}

// Locked reports whether the account is locked out at the given instant.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// VaultEntry is a stored credential. Ciphertext holds the AEAD-sealed secret
// with its nonce prepended; everything else is metadata readable without the
// data key.
type VaultEntry struct {
	ID            string
	OwnerID       int64
	Service       string
	LoginName     string
	Ciphertext    []byte
	Notes         string
	Tags          string
	StrengthScore int
	CreatedAt     time.Time
	LastUsed      *time.Time
}

// EntryVersion is a superseded ciphertext kept in an entry's bounded history.
type EntryVersion struct {
	ID         int64
	EntryID    string
	Ciphertext []byte
	ReplacedAt time.Time
}

// EntryMetadata is the listing view of an entry. It deliberately omits the
// ciphertext so that listing never touches secret material.
type EntryMetadata struct {
	ID            string
	Service       string
	LoginName     string
	Tags          string
	StrengthScore int
	CreatedAt     time.Time
	LastUsed      *time.Time
}

// Metadata projects the listing view of an entry.
func (e *VaultEntry) Metadata() EntryMetadata {
	return EntryMetadata{
		ID:            e.ID,
		Service:       e.Service,
		LoginName:     e.LoginName,
		Tags:          e.Tags,
		StrengthScore: e.StrengthScore,
		CreatedAt:     e.CreatedAt,
		LastUsed:      e.LastUsed,
	}
}

// PlaintextEntry is a decrypted entry as handed to a caller. The Secret field
// is the caller's copy; the vault does not retain it.
type PlaintextEntry struct {
	ID        string
	Service   string
	LoginName string
	Secret    string
	Notes     string
	Tags      string
	CreatedAt time.Time
}

// AuditLogEntry is one append-only audit trail record.
type AuditLogEntry struct {
	ID        int64
	Timestamp time.Time
	Actor     string
	EventKind string
	Outcome   string
	Metadata  string
}
