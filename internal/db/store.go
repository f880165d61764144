// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/verdantfox/strongbox/internal/model"
	"github.com/verdantfox/strongbox/internal/policy"
)

// Filter narrows entry listings. Empty fields match everything; non-empty
// fields match as substrings.
type Filter struct {
	Service string
	Tag     string
}

// Store defines the interface for all database operations in Strongbox.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Account methods
	CreateAccount(a *model.Account) (int64, error)
	GetAccountByUsername(username string) (*model.Account, error)
	DeleteAccount(id int64) error

	// RecordFailedAttempt atomically increments the account's failure
	// counter and, when the counter reaches maxAttempts, sets the lockout
	// deadline in the same transaction. It returns the new counter value and
	// whether the account is now locked. Concurrent callers never lose an
	// increment.
	RecordFailedAttempt(username string, maxAttempts int, lockedUntil time.Time) (int, bool, error)

	// ResetAttempts clears the failure counter and any lockout deadline.
	ResetAttempts(username string) error

	// UpdateCredentials replaces the verifier and wrapped data key after a
	// password change. Entries are untouched; only the wrap changes.
	UpdateCredentials(id int64, verifier, verifierSalt, wrappedDataKey, wrapSalt []byte) error

	// Entry methods
	InsertEntry(e *model.VaultEntry) error
	GetEntry(id string) (*model.VaultEntry, error)
	FindEntries(ownerID int64, service, loginName string) ([]model.VaultEntry, error)
	AllEntries(ownerID int64) ([]model.VaultEntry, error)
	ListEntries(ownerID int64, f Filter) ([]model.EntryMetadata, error)

	// ReplaceEntrySecret swaps an entry's ciphertext, pushing the previous
	// ciphertext onto the entry's history and trimming the history to
	// historyLimit, all in one transaction.
	ReplaceEntrySecret(id string, ciphertext []byte, notes, tags string, strength int, replacedAt time.Time, historyLimit int) error

	TouchEntry(id string, usedAt time.Time) error
	DeleteEntry(id string) error
	EntryHistory(entryID string) ([]model.EntryVersion, error)

	// Vault policy, persisted at vault creation.
	SavePolicy(p policy.Policy) error
	LoadPolicy() (*policy.Policy, error)

	// Audit log methods
	LogEvent(e *model.AuditLogEntry) error
	AuditLog(limit int) ([]model.AuditLogEntry, error)
}
