// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/verdantfox/strongbox/internal/model"
)

// AccountModel is the bun row model for the accounts table.
type AccountModel struct {
	bun.BaseModel `bun:"table:accounts"`

	ID             int64      `bun:"id,pk,autoincrement"`
	Username       string     `bun:"username,notnull,unique"`
	Verifier       []byte     `bun:"verifier,notnull"`
	VerifierSalt   []byte     `bun:"verifier_salt,notnull"`
	WrappedDataKey []byte     `bun:"wrapped_data_key,notnull"`
	WrapSalt       []byte     `bun:"wrap_salt,notnull"`
	FailedAttempts int        `bun:"failed_attempts,notnull,default:0"`
	LockedUntil    *time.Time `bun:"locked_until,nullzero"`
	MFASeed        string     `bun:"mfa_seed"`
	Permissions    string     `bun:"permissions,notnull"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
}

func (m *AccountModel) toAccount() *model.Account {
	return &model.Account{
		ID:             m.ID,
		Username:       m.Username,
		Verifier:       m.Verifier,
		VerifierSalt:   m.VerifierSalt,
		WrappedDataKey: m.WrappedDataKey,
		WrapSalt:       m.WrapSalt,
		FailedAttempts: m.FailedAttempts,
		LockedUntil:    m.LockedUntil,
		MFASeed:        m.MFASeed,
		Permissions:    m.Permissions,
		CreatedAt:      m.CreatedAt,
	}
}

func accountModelFrom(a *model.Account) *AccountModel {
	return &AccountModel{
		ID:             a.ID,
		Username:       a.Username,
		Verifier:       a.Verifier,
		VerifierSalt:   a.VerifierSalt,
		WrappedDataKey: a.WrappedDataKey,
		WrapSalt:       a.WrapSalt,
		FailedAttempts: a.FailedAttempts,
		LockedUntil:    a.LockedUntil,
		MFASeed:        a.MFASeed,
		Permissions:    a.Permissions,
		CreatedAt:      a.CreatedAt,
	}
}

// EntryModel is the bun row model for the entries table.
type EntryModel struct {
	bun.BaseModel `bun:"table:entries"`

	ID            string     `bun:"id,pk"`
	OwnerID       int64      `bun:"owner_id,notnull"`
	Service       string     `bun:"service,notnull"`
	LoginName     string     `bun:"login_name,notnull"`
	Ciphertext    []byte     `bun:"ciphertext,notnull"`
	Notes         string     `bun:"notes"`
	Tags          string     `bun:"tags"`
	StrengthScore int        `bun:"strength_score,notnull,default:0"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	LastUsed      *time.Time `bun:"last_used,nullzero"`
}

func (m *EntryModel) toEntry() model.VaultEntry {
	return model.VaultEntry{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Service:       m.Service,
		LoginName:     m.LoginName,
		Ciphertext:    m.Ciphertext,
		Notes:         m.Notes,
		Tags:          m.Tags,
		StrengthScore: m.StrengthScore,
		CreatedAt:     m.CreatedAt,
		LastUsed:      m.LastUsed,
	}
}

func entryModelFrom(e *model.VaultEntry) *EntryModel {
	return &EntryModel{
		ID:            e.ID,
		OwnerID:       e.OwnerID,
		Service:       e.Service,
		LoginName:     e.LoginName,
		Ciphertext:    e.Ciphertext,
		Notes:         e.Notes,
		Tags:          e.Tags,
		StrengthScore: e.StrengthScore,
		CreatedAt:     e.CreatedAt,
		LastUsed:      e.LastUsed,
	}
}

// EntryHistoryModel is the bun row model for superseded entry ciphertexts.
type EntryHistoryModel struct {
	bun.BaseModel `bun:"table:entry_history"`

	ID         int64     `bun:"id,pk,autoincrement"`
	EntryID    string    `bun:"entry_id,notnull"`
	Ciphertext []byte    `bun:"ciphertext,notnull"`
	ReplacedAt time.Time `bun:"replaced_at,notnull"`
}

// AuditLogModel is the bun row model for the append-only audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Timestamp time.Time `bun:"timestamp,notnull"`
	Actor     string    `bun:"actor,notnull"`
	EventKind string    `bun:"event_kind,notnull"`
	Outcome   string    `bun:"outcome,notnull"`
	Metadata  string    `bun:"metadata"`
}

// VaultMetaModel is a key/value row used for vault-wide settings such as the
// persisted security policy.
type VaultMetaModel struct {
	bun.BaseModel `bun:"table:vault_meta"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}
