// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package vault stores and retrieves credential entries. Every secret is
// sealed under the session's data key before it reaches the store, and the
// store never sees plaintext. Replacing a secret pushes the old ciphertext
// onto a bounded per-entry history.
package vault

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verdantfox/strongbox/internal/audit"
	"github.com/verdantfox/strongbox/internal/auth"
	"github.com/verdantfox/strongbox/internal/db"
	"github.com/verdantfox/strongbox/internal/generator"
	"github.com/verdantfox/strongbox/internal/kdf"
	"github.com/verdantfox/strongbox/internal/model"
)

// HistoryLimit bounds how many superseded ciphertexts an entry keeps.
const HistoryLimit = 5

// ErrEntryNotFound is returned when no entry matches the given service and
// login name for the session's account.
var ErrEntryNotFound = fmt.Errorf("no matching entry")

// Sessions resolves session IDs to live sessions. *auth.Manager implements
// it; an expired or unknown ID fails here before any entry is touched.
type Sessions interface {
	CheckSession(id string) (*auth.Session, error)
}

// Vault is the entry service bound to a store. Every operation validates the
// caller's session first, so an expired session can never reach the data key.
type Vault struct {
	store    db.Store
	sessions Sessions
	aud      audit.Writer
}

// New builds a Vault on the given store and session source.
func New(s db.Store, sessions Sessions) *Vault {
	return &Vault{store: s, sessions: sessions, aud: audit.NewWriter(s)}
}

// PutResult describes what Put did and how strong the stored secret is.
type PutResult struct {
	EntryID  string
	Replaced bool
	Strength generator.Strength
}

// Put stores a secret for service/loginName. If the account already has an
// entry for that pair the secret is replaced and the old ciphertext pushed to
// history; otherwise a new entry is created. Weak secrets are stored, not
// rejected; the returned strength lets callers warn.
func (v *Vault) Put(sessionID, service, loginName, secretValue, notes, tags string) (*PutResult, error) {
	sess, err := v.sessions.CheckSession(sessionID)
	if err != nil {
		return nil, err
	}
	if service == "" {
		return nil, fmt.Errorf("service must not be empty")
	}

	strength := generator.Evaluate(secretValue)

	var ciphertext []byte
	err = sess.DataKey.Use(func(key []byte) error {
		var serr error
		ciphertext, serr = kdf.Seal(key, []byte(secretValue))
		return serr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	existing, err := v.store.FindEntries(sess.AccountID, service, loginName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up entries: %w", err)
	}

	if len(existing) > 0 {
		id := existing[0].ID
		if err := v.store.ReplaceEntrySecret(id, ciphertext, notes, tags, strength.Score, time.Now(), HistoryLimit); err != nil {
			return nil, fmt.Errorf("failed to replace secret: %w", err)
		}
		audit.Record(v.aud, sess.Username, audit.EventEntryPut, audit.OutcomeSuccess,
			fmt.Sprintf("service=%s replaced", service))
		return &PutResult{EntryID: id, Replaced: true, Strength: strength}, nil
	}

	entry := &model.VaultEntry{
		ID:            uuid.NewString(),
		OwnerID:       sess.AccountID,
		Service:       service,
		LoginName:     loginName,
		Ciphertext:    ciphertext,
		Notes:         notes,
		Tags:          tags,
		StrengthScore: strength.Score,
		CreatedAt:     time.Now(),
	}
	if err := v.store.InsertEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to store entry: %w", err)
	}
	audit.Record(v.aud, sess.Username, audit.EventEntryPut, audit.OutcomeSuccess,
		fmt.Sprintf("service=%s created", service))
	return &PutResult{EntryID: entry.ID, Strength: strength}, nil
}

// Get returns the decrypted entry for service/loginName. When loginName is
// empty and several logins exist for the service, the most recently used one
// wins. Retrieval refreshes the entry's last-used timestamp.
func (v *Vault) Get(sessionID, service, loginName string) (*model.PlaintextEntry, error) {
	sess, err := v.sessions.CheckSession(sessionID)
	if err != nil {
		return nil, err
	}
	matches, err := v.store.FindEntries(sess.AccountID, service, loginName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up entries: %w", err)
	}
	if len(matches) == 0 {
		audit.Record(v.aud, sess.Username, audit.EventEntryGet, audit.OutcomeFailure,
			fmt.Sprintf("service=%s not found", service))
		return nil, ErrEntryNotFound
	}
	entry := matches[0]

	var plaintext []byte
	err = sess.DataKey.Use(func(key []byte) error {
		var derr error
		plaintext, derr = kdf.Open(key, entry.Ciphertext)
		return derr
	})
	if err != nil {
		audit.Record(v.aud, sess.Username, audit.EventEntryGet, audit.OutcomeFailure,
			fmt.Sprintf("service=%s decrypt failed", service))
		return nil, err
	}

	if err := v.store.TouchEntry(entry.ID, time.Now()); err != nil {
		// Losing the last-used update is not worth failing the read.
		audit.Record(v.aud, sess.Username, audit.EventEntryGet, audit.OutcomeSuccess,
			fmt.Sprintf("service=%s (touch failed)", service))
	} else {
		audit.Record(v.aud, sess.Username, audit.EventEntryGet, audit.OutcomeSuccess,
			fmt.Sprintf("service=%s", service))
	}

	return &model.PlaintextEntry{
		ID:        entry.ID,
		Service:   entry.Service,
		LoginName: entry.LoginName,
		Secret:    string(plaintext),
		Notes:     entry.Notes,
		Tags:      entry.Tags,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// List returns entry metadata for the session's account, optionally filtered
// by service or tag substring. No ciphertext is touched.
func (v *Vault) List(sessionID string, f db.Filter) ([]model.EntryMetadata, error) {
	sess, err := v.sessions.CheckSession(sessionID)
	if err != nil {
		return nil, err
	}
	return v.store.ListEntries(sess.AccountID, f)
}

// Delete removes the entry for service/loginName together with its history.
func (v *Vault) Delete(sessionID, service, loginName string) error {
	sess, err := v.sessions.CheckSession(sessionID)
	if err != nil {
		return err
	}
	matches, err := v.store.FindEntries(sess.AccountID, service, loginName)
	if err != nil {
		return fmt.Errorf("failed to look up entries: %w", err)
	}
	if len(matches) == 0 {
		return ErrEntryNotFound
	}
	if err := v.store.DeleteEntry(matches[0].ID); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	audit.Record(v.aud, sess.Username, audit.EventEntryDelete, audit.OutcomeSuccess,
		fmt.Sprintf("service=%s", service))
	return nil
}

// Version is one decrypted superseded secret from an entry's history.
type Version struct {
	Secret     string
	ReplacedAt time.Time
}

// History returns the decrypted prior secrets of an entry, newest first.
func (v *Vault) History(sessionID, service, loginName string) ([]Version, error) {
	sess, err := v.sessions.CheckSession(sessionID)
	if err != nil {
		return nil, err
	}
	matches, err := v.store.FindEntries(sess.AccountID, service, loginName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up entries: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrEntryNotFound
	}
	versions, err := v.store.EntryHistory(matches[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	out := make([]Version, 0, len(versions))
	for _, ver := range versions {
		var plaintext []byte
		err := sess.DataKey.Use(func(key []byte) error {
			var derr error
			plaintext, derr = kdf.Open(key, ver.Ciphertext)
			return derr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, Version{Secret: string(plaintext), ReplacedAt: ver.ReplacedAt})
	}
	return out, nil
}
