// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package vault

import (
	"fmt"

	"github.com/verdantfox/strongbox/internal/audit"
	"github.com/verdantfox/strongbox/internal/auth"
	"github.com/verdantfox/strongbox/internal/export"
	"github.com/verdantfox/strongbox/internal/kdf"
	"github.com/verdantfox/strongbox/internal/model"
)

// ExportFailure records one entry that could not be decrypted during an
// export. The export continues past it.
type ExportFailure struct {
	EntryID string
	Service string
	Err     error
}

// ExportReport summarizes an export run.
type ExportReport struct {
	Exported int
	Failures []ExportFailure
}

// collectPlaintext decrypts every entry of the account, isolating per-entry
// failures into the report instead of aborting the whole export.
func (v *Vault) collectPlaintext(sess *auth.Session) ([]model.PlaintextEntry, *ExportReport, error) {
	entries, err := v.store.AllEntries(sess.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load entries: %w", err)
	}

	report := &ExportReport{}
	out := make([]model.PlaintextEntry, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		var plaintext []byte
		err := sess.DataKey.Use(func(key []byte) error {
			var derr error
			plaintext, derr = kdf.Open(key, e.Ciphertext)
			return derr
		})
		if err != nil {
			report.Failures = append(report.Failures, ExportFailure{
				EntryID: e.ID,
				Service: e.Service,
				Err:     err,
			})
			continue
		}
		out = append(out, model.PlaintextEntry{
			ID:        e.ID,
			Service:   e.Service,
			LoginName: e.LoginName,
			Secret:    string(plaintext),
			Notes:     e.Notes,
			Tags:      e.Tags,
			CreatedAt: e.CreatedAt,
		})
	}
	report.Exported = len(out)
	return out, report, nil
}

// Export produces a plain (gzip JSON) backup of the account's entries.
func (v *Vault) Export(sessionID string) ([]byte, *ExportReport, error) {
	sess, err := v.sessions.CheckSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	entries, report, err := v.collectPlaintext(sess)
	if err != nil {
		return nil, nil, err
	}
	blob, err := export.Encode(entries)
	if err != nil {
		return nil, nil, err
	}
	audit.Record(v.aud, sess.Username, audit.EventExport, audit.OutcomeSuccess,
		fmt.Sprintf("plain, %d entries, %d failures", report.Exported, len(report.Failures)))
	return blob, report, nil
}

// ExportEncrypted produces a backup sealed under an independent passphrase,
// using the given KDF cost parameters.
func (v *Vault) ExportEncrypted(sessionID, passphrase string, params kdf.Params) ([]byte, *ExportReport, error) {
	sess, err := v.sessions.CheckSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if passphrase == "" {
		return nil, nil, fmt.Errorf("export passphrase must not be empty")
	}
	entries, report, err := v.collectPlaintext(sess)
	if err != nil {
		return nil, nil, err
	}
	blob, err := export.EncodeEncrypted(entries, passphrase, params)
	if err != nil {
		return nil, nil, err
	}
	audit.Record(v.aud, sess.Username, audit.EventExport, audit.OutcomeSuccess,
		fmt.Sprintf("encrypted, %d entries, %d failures", report.Exported, len(report.Failures)))
	return blob, report, nil
}
