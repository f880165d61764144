// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package audit appends security events to the vault's audit trail. Recording
// is best-effort: a failing audit write logs a warning but never blocks the
// operation that produced the event.
package audit

import (
	"time"

	"github.com/verdantfox/strongbox/internal/db"
	"github.com/verdantfox/strongbox/internal/logging"
	"github.com/verdantfox/strongbox/internal/model"
)

// Event kinds recorded in the audit trail.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventLogout         = "logout"
	EventLockout        = "lockout"
	EventMFAChallenge   = "mfa_challenge"
	EventPasswordChange = "password_change"
	EventAccountDelete  = "account_delete"
	EventEntryPut       = "entry_put"
	EventEntryGet       = "entry_get"
	EventEntryDelete    = "entry_delete"
	EventExport         = "export"
)

// Outcomes for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Writer appends one event to the audit trail.
type Writer interface {
	Write(e *model.AuditLogEntry) error
}

// storeWriter persists events through the Store.
type storeWriter struct {
	store db.Store
}

func (w *storeWriter) Write(e *model.AuditLogEntry) error {
	return w.store.LogEvent(e)
}

// NewWriter returns a Writer that persists events in the given store.
func NewWriter(s db.Store) Writer {
	return &storeWriter{store: s}
}

// DefaultWriter, when set, overrides the writer used by Record. Tests use it
// to capture events without a database.
var DefaultWriter Writer

// Record appends an event, preferring DefaultWriter over w. Failures are
// logged and swallowed; the audit trail must never take an operation down
// with it.
func Record(w Writer, actor, kind, outcome, metadata string) {
	e := &model.AuditLogEntry{
		Timestamp: time.Now(),
		Actor:     actor,
		EventKind: kind,
		Outcome:   outcome,
		Metadata:  metadata,
	}
	target := w
	if DefaultWriter != nil {
		target = DefaultWriter
	}
	if target == nil {
		return
	}
	if err := target.Write(e); err != nil {
		logging.Warnf("audit: failed to record %s event: %v", kind, err)
	}
}
