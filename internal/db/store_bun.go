// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/verdantfox/strongbox/internal/model"
	"github.com/verdantfox/strongbox/internal/policy"
)

const policyMetaKey = "security_policy"

// bunStore implements Store on top of a *bun.DB. The dialect-specific store
// types embed it; all queries here are written to work on SQLite, Postgres
// and MySQL alike.
type bunStore struct {
	bun *bun.DB
}

// SqliteStore is the Store implementation backed by SQLite.
type SqliteStore struct{ bunStore }

// PostgresStore is the Store implementation backed by PostgreSQL.
type PostgresStore struct{ bunStore }

// MySQLStore is the Store implementation backed by MySQL/MariaDB.
type MySQLStore struct{ bunStore }

func (s *bunStore) CreateAccount(a *model.Account) (int64, error) {
	m := accountModelFrom(a)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.bun.NewInsert().Model(m).Exec(context.Background())
	if err != nil {
		return 0, MapDBError(err)
	}
	a.ID = m.ID
	a.CreatedAt = m.CreatedAt
	return m.ID, nil
}

func (s *bunStore) GetAccountByUsername(username string) (*model.Account, error) {
	m := new(AccountModel)
	err := s.bun.NewSelect().Model(m).Where("username = ?", username).Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, MapDBError(err)
	}
	return m.toAccount(), nil
}

func (s *bunStore) DeleteAccount(id int64) error {
	ctx := context.Background()
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Purge history for the account's entries first, then the entries,
		// then the account row itself.
		if _, err := tx.NewDelete().Model((*EntryHistoryModel)(nil)).
			Where("entry_id IN (SELECT id FROM entries WHERE owner_id = ?)", id).
			Exec(ctx); err != nil {
			return MapDBError(err)
		}
		if _, err := tx.NewDelete().Model((*EntryModel)(nil)).
			Where("owner_id = ?", id).
			Exec(ctx); err != nil {
			return MapDBError(err)
		}
		res, err := tx.NewDelete().Model((*AccountModel)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return MapDBError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *bunStore) RecordFailedAttempt(username string, maxAttempts int, lockedUntil time.Time) (int, bool, error) {
	ctx := context.Background()
	var attempts int
	var locked bool
	err := s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The increment happens in the database, not in Go, so concurrent
		// failures never overwrite each other.
		res, err := tx.NewUpdate().Model((*AccountModel)(nil)).
			Set("failed_attempts = failed_attempts + 1").
			Where("username = ?", username).
			Exec(ctx)
		if err != nil {
			return MapDBError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		if err := tx.NewSelect().Model((*AccountModel)(nil)).
			Column("failed_attempts").
			Where("username = ?", username).
			Scan(ctx, &attempts); err != nil {
			return MapDBError(err)
		}
		if attempts >= maxAttempts {
			locked = true
			if _, err := tx.NewUpdate().Model((*AccountModel)(nil)).
				Set("locked_until = ?", lockedUntil).
				Where("username = ?", username).
				Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return attempts, locked, nil
}

func (s *bunStore) ResetAttempts(username string) error {
	_, err := s.bun.NewUpdate().Model((*AccountModel)(nil)).
		Set("failed_attempts = 0").
		Set("locked_until = NULL").
		Where("username = ?", username).
		Exec(context.Background())
	return MapDBError(err)
}

func (s *bunStore) UpdateCredentials(id int64, verifier, verifierSalt, wrappedDataKey, wrapSalt []byte) error {
	res, err := s.bun.NewUpdate().Model((*AccountModel)(nil)).
		Set("verifier = ?", verifier).
		Set("verifier_salt = ?", verifierSalt).
		Set("wrapped_data_key = ?", wrappedDataKey).
		Set("wrap_salt = ?", wrapSalt).
		Where("id = ?", id).
		Exec(context.Background())
	if err != nil {
		return MapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *bunStore) InsertEntry(e *model.VaultEntry) error {
	m := entryModelFrom(e)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.bun.NewInsert().Model(m).Exec(context.Background())
	if err != nil {
		return MapDBError(err)
	}
	e.CreatedAt = m.CreatedAt
	return nil
}

func (s *bunStore) GetEntry(id string) (*model.VaultEntry, error) {
	m := new(EntryModel)
	err := s.bun.NewSelect().Model(m).Where("id = ?", id).Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, MapDBError(err)
	}
	e := m.toEntry()
	return &e, nil
}

func (s *bunStore) FindEntries(ownerID int64, service, loginName string) ([]model.VaultEntry, error) {
	var rows []EntryModel
	q := s.bun.NewSelect().Model(&rows).
		Where("owner_id = ?", ownerID).
		Where("service = ?", service)
	if loginName != "" {
		q = q.Where("login_name = ?", loginName)
	}
	// Most recently used first. The NULL check is ordered explicitly because
	// the dialects disagree on where DESC puts NULLs: Postgres sorts them
	// first, SQLite and MySQL last. Never-used entries always come after any
	// used one, then fall back to creation time.
	q = q.OrderExpr("last_used IS NULL").OrderExpr("last_used DESC").OrderExpr("created_at DESC")
	if err := q.Scan(context.Background()); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.VaultEntry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntry())
	}
	return out, nil
}

func (s *bunStore) AllEntries(ownerID int64) ([]model.VaultEntry, error) {
	var rows []EntryModel
	err := s.bun.NewSelect().Model(&rows).
		Where("owner_id = ?", ownerID).
		Order("service ASC", "login_name ASC").
		Scan(context.Background())
	if err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.VaultEntry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntry())
	}
	return out, nil
}

func (s *bunStore) ListEntries(ownerID int64, f Filter) ([]model.EntryMetadata, error) {
	var rows []EntryModel
	q := s.bun.NewSelect().Model(&rows).
		Column("id", "service", "login_name", "tags", "strength_score", "created_at", "last_used").
		Where("owner_id = ?", ownerID)
	if f.Service != "" {
		q = q.Where("service LIKE ?", "%"+f.Service+"%")
	}
	if f.Tag != "" {
		q = q.Where("tags LIKE ?", "%"+f.Tag+"%")
	}
	q = q.Order("service ASC", "login_name ASC")
	if err := q.Scan(context.Background()); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.EntryMetadata, 0, len(rows))
	for i := range rows {
		e := rows[i].toEntry()
		out = append(out, e.Metadata())
	}
	return out, nil
}

func (s *bunStore) ReplaceEntrySecret(id string, ciphertext []byte, notes, tags string, strength int, replacedAt time.Time, historyLimit int) error {
	ctx := context.Background()
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		cur := new(EntryModel)
		if err := tx.NewSelect().Model(cur).Where("id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return MapDBError(err)
		}

		hist := &EntryHistoryModel{
			EntryID:    id,
			Ciphertext: cur.Ciphertext,
			ReplacedAt: replacedAt,
		}
		if _, err := tx.NewInsert().Model(hist).Exec(ctx); err != nil {
			return MapDBError(err)
		}

		if _, err := tx.NewUpdate().Model((*EntryModel)(nil)).
			Set("ciphertext = ?", ciphertext).
			Set("notes = ?", notes).
			Set("tags = ?", tags).
			Set("strength_score = ?", strength).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return MapDBError(err)
		}

		// Trim history to the newest historyLimit versions. The subquery
		// selects the survivors; everything else for this entry goes.
		if historyLimit > 0 {
			var keep []int64
			if err := tx.NewSelect().Model((*EntryHistoryModel)(nil)).
				Column("id").
				Where("entry_id = ?", id).
				OrderExpr("replaced_at DESC").
				OrderExpr("id DESC").
				Limit(historyLimit).
				Scan(ctx, &keep); err != nil {
				return MapDBError(err)
			}
			if _, err := tx.NewDelete().Model((*EntryHistoryModel)(nil)).
				Where("entry_id = ?", id).
				Where("id NOT IN (?)", bun.In(keep)).
				Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}

func (s *bunStore) TouchEntry(id string, usedAt time.Time) error {
	res, err := s.bun.NewUpdate().Model((*EntryModel)(nil)).
		Set("last_used = ?", usedAt).
		Where("id = ?", id).
		Exec(context.Background())
	if err != nil {
		return MapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *bunStore) DeleteEntry(id string) error {
	ctx := context.Background()
	return s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*EntryHistoryModel)(nil)).
			Where("entry_id = ?", id).
			Exec(ctx); err != nil {
			return MapDBError(err)
		}
		res, err := tx.NewDelete().Model((*EntryModel)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return MapDBError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *bunStore) EntryHistory(entryID string) ([]model.EntryVersion, error) {
	var rows []EntryHistoryModel
	err := s.bun.NewSelect().Model(&rows).
		Where("entry_id = ?", entryID).
		OrderExpr("replaced_at DESC").
		OrderExpr("id DESC").
		Scan(context.Background())
	if err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.EntryVersion, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.EntryVersion{
			ID:         r.ID,
			EntryID:    r.EntryID,
			Ciphertext: r.Ciphertext,
			ReplacedAt: r.ReplacedAt,
		})
	}
	return out, nil
}

func (s *bunStore) SavePolicy(p policy.Policy) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	ctx := context.Background()
	m := &VaultMetaModel{Key: policyMetaKey, Value: string(data)}
	q := s.bun.NewInsert().Model(m)
	// MySQL has no ON CONFLICT; branch on the dialect so the upsert stays a
	// single atomic statement everywhere.
	if s.bun.Dialect().Name() == dialect.MySQL {
		q = q.On("DUPLICATE KEY UPDATE").Set("value = VALUES(value)")
	} else {
		q = q.On("CONFLICT (?) DO UPDATE", bun.Ident("key")).Set("value = EXCLUDED.value")
	}
	if _, err := q.Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

func (s *bunStore) LoadPolicy() (*policy.Policy, error) {
	m := new(VaultMetaModel)
	err := s.bun.NewSelect().Model(m).Where("? = ?", bun.Ident("key"), policyMetaKey).Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, MapDBError(err)
	}
	var p policy.Policy
	if err := json.Unmarshal([]byte(m.Value), &p); err != nil {
		return nil, fmt.Errorf("failed to decode stored policy: %w", err)
	}
	return &p, nil
}

func (s *bunStore) LogEvent(e *model.AuditLogEntry) error {
	m := &AuditLogModel{
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		EventKind: e.EventKind,
		Outcome:   e.Outcome,
		Metadata:  e.Metadata,
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	_, err := s.bun.NewInsert().Model(m).Exec(context.Background())
	if err != nil {
		return MapDBError(err)
	}
	e.ID = m.ID
	e.Timestamp = m.Timestamp
	return nil
}

func (s *bunStore) AuditLog(limit int) ([]model.AuditLogEntry, error) {
	var rows []AuditLogModel
	q := s.bun.NewSelect().Model(&rows).
		OrderExpr("timestamp DESC").
		OrderExpr("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(context.Background()); err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AuditLogEntry{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Actor:     r.Actor,
			EventKind: r.EventKind,
			Outcome:   r.Outcome,
			Metadata:  r.Metadata,
		})
	}
	return out, nil
}
