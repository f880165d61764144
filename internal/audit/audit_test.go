// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import (
	"errors"
	"testing"

	"github.com/verdantfox/strongbox/internal/model"
)

// captureWriter records events in memory for assertions.
type captureWriter struct {
	events []*model.AuditLogEntry
}

func (w *captureWriter) Write(e *model.AuditLogEntry) error {
	w.events = append(w.events, e)
	return nil
}

// failingWriter always errors.
type failingWriter struct{}

func (failingWriter) Write(e *model.AuditLogEntry) error {
	return errors.New("disk full")
}

func withDefaultWriter(t *testing.T, w Writer, fn func()) {
	t.Helper()
	prev := DefaultWriter
	DefaultWriter = w
	defer func() { DefaultWriter = prev }()
	fn()
}

func TestRecord_CapturesEvent(t *testing.T) {
	cw := &captureWriter{}
	withDefaultWriter(t, cw, func() {
		Record(nil, "alice", EventLogin, OutcomeSuccess, "details")
	})

	if len(cw.events) != 1 {
		t.Fatalf("captured %d events, want 1", len(cw.events))
	}
	e := cw.events[0]
	if e.Actor != "alice" || e.EventKind != EventLogin || e.Outcome != OutcomeSuccess || e.Metadata != "details" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Fatal("Record must stamp the event")
	}
}

func TestRecord_BestEffort(t *testing.T) {
	// A failing writer must not panic or propagate the error.
	withDefaultWriter(t, failingWriter{}, func() {
		Record(nil, "alice", EventExport, OutcomeFailure, "")
	})

	// No writer at all is also fine.
	withDefaultWriter(t, nil, func() {
		Record(nil, "alice", EventExport, OutcomeFailure, "")
	})
}

func TestRecord_DefaultWriterOverrides(t *testing.T) {
	direct := &captureWriter{}
	override := &captureWriter{}
	withDefaultWriter(t, override, func() {
		Record(direct, "alice", EventLogout, OutcomeSuccess, "")
	})
	if len(direct.events) != 0 || len(override.events) != 1 {
		t.Fatalf("DefaultWriter should win: direct=%d override=%d", len(direct.events), len(override.events))
	}
}
