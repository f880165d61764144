// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/verdantfox/strongbox/internal/model"
	"github.com/verdantfox/strongbox/internal/policy"
)

func testAccount(username string) *model.Account {
	return &model.Account{
		Username:       username,
		Verifier:       []byte("verifier-bytes"),
		VerifierSalt:   []byte("verifier-salt"),
		WrappedDataKey: []byte("wrapped-key"),
		WrapSalt:       []byte("wrap-salt"),
		Permissions:    "user",
		CreatedAt:      time.Now(),
	}
}

func testEntry(id string, ownerID int64, service, login string) *model.VaultEntry {
	return &model.VaultEntry{
		ID:         id,
		OwnerID:    ownerID,
		Service:    service,
		LoginName:  login,
		Ciphertext: []byte("ciphertext-" + id),
		Tags:       "work",
		CreatedAt:  time.Now(),
	}
}

func TestCreateAccount_Duplicate(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if _, err := s.CreateAccount(testAccount("alice")); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		_, err := s.CreateAccount(testAccount("alice"))
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate for duplicate username, got %v", err)
		}
	})
}

func TestGetAccountByUsername_NotFound(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		_, err := s.GetAccountByUsername("ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRecordFailedAttempt_CountsAndLocks(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if _, err := s.CreateAccount(testAccount("alice")); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}

		lockAt := time.Now().Add(time.Minute)
		for i := 1; i < 3; i++ {
			attempts, locked, err := s.RecordFailedAttempt("alice", 3, lockAt)
			if err != nil {
				t.Fatalf("RecordFailedAttempt %d failed: %v", i, err)
			}
			if attempts != i {
				t.Errorf("attempt %d: counter = %d, want %d", i, attempts, i)
			}
			if locked {
				t.Errorf("attempt %d: locked too early", i)
			}
		}

		attempts, locked, err := s.RecordFailedAttempt("alice", 3, lockAt)
		if err != nil {
			t.Fatalf("final RecordFailedAttempt failed: %v", err)
		}
		if attempts != 3 || !locked {
			t.Fatalf("attempts=%d locked=%v, want 3/true", attempts, locked)
		}

		a, err := s.GetAccountByUsername("alice")
		if err != nil {
			t.Fatalf("GetAccountByUsername failed: %v", err)
		}
		if a.LockedUntil == nil {
			t.Fatal("expected locked_until to be set after lockout")
		}
	})
}

func TestRecordFailedAttempt_UnknownUser(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		_, _, err := s.RecordFailedAttempt("ghost", 3, time.Now())
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestResetAttempts(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if _, err := s.CreateAccount(testAccount("alice")); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if _, _, err := s.RecordFailedAttempt("alice", 10, time.Now().Add(time.Minute)); err != nil {
			t.Fatalf("RecordFailedAttempt failed: %v", err)
		}
		if err := s.ResetAttempts("alice"); err != nil {
			t.Fatalf("ResetAttempts failed: %v", err)
		}
		a, err := s.GetAccountByUsername("alice")
		if err != nil {
			t.Fatalf("GetAccountByUsername failed: %v", err)
		}
		if a.FailedAttempts != 0 || a.LockedUntil != nil {
			t.Fatalf("counter not reset: attempts=%d lockedUntil=%v", a.FailedAttempts, a.LockedUntil)
		}
	})
}

func TestUpdateCredentials(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		id, err := s.CreateAccount(testAccount("alice"))
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		err = s.UpdateCredentials(id, []byte("v2"), []byte("vs2"), []byte("wk2"), []byte("ws2"))
		if err != nil {
			t.Fatalf("UpdateCredentials failed: %v", err)
		}
		a, err := s.GetAccountByUsername("alice")
		if err != nil {
			t.Fatalf("GetAccountByUsername failed: %v", err)
		}
		if string(a.Verifier) != "v2" || string(a.WrapSalt) != "ws2" {
			t.Fatalf("credentials not updated: %q %q", a.Verifier, a.WrapSalt)
		}
		if err := s.UpdateCredentials(9999, []byte("v"), []byte("s"), []byte("k"), []byte("w")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
		}
	})
}

func TestEntryLifecycle(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		ownerID, err := s.CreateAccount(testAccount("alice"))
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		e := testEntry("e1", ownerID, "example.com", "alice@example.com")
		if err := s.InsertEntry(e); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}

		got, err := s.GetEntry("e1")
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if got.Service != "example.com" || string(got.Ciphertext) != "ciphertext-e1" {
			t.Fatalf("unexpected entry: %+v", got)
		}

		found, err := s.FindEntries(ownerID, "example.com", "")
		if err != nil || len(found) != 1 {
			t.Fatalf("FindEntries = %v entries, err %v", len(found), err)
		}

		used := time.Now().Add(time.Second)
		if err := s.TouchEntry("e1", used); err != nil {
			t.Fatalf("TouchEntry failed: %v", err)
		}
		got, _ = s.GetEntry("e1")
		if got.LastUsed == nil {
			t.Fatal("expected last_used to be set")
		}

		if err := s.DeleteEntry("e1"); err != nil {
			t.Fatalf("DeleteEntry failed: %v", err)
		}
		if _, err := s.GetEntry("e1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteEntry("e1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for double delete, got %v", err)
		}
	})
}

func TestFindEntries_MostRecentlyUsedFirst(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		ownerID, err := s.CreateAccount(testAccount("alice"))
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if err := s.InsertEntry(testEntry("old", ownerID, "example.com", "a")); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
		if err := s.InsertEntry(testEntry("fresh", ownerID, "example.com", "b")); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
		if err := s.TouchEntry("fresh", time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("TouchEntry failed: %v", err)
		}

		found, err := s.FindEntries(ownerID, "example.com", "")
		if err != nil {
			t.Fatalf("FindEntries failed: %v", err)
		}
		if len(found) != 2 || found[0].ID != "fresh" {
			t.Fatalf("expected most recently used first, got order %v", entryIDs(found))
		}
	})
}

func TestFindEntries_NeverUsedSortsLast(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		ownerID, err := s.CreateAccount(testAccount("alice"))
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		// "used" is older but has been read; "untouched" is newer and never
		// has. The used entry must still come first.
		used := testEntry("used", ownerID, "example.com", "a")
		used.CreatedAt = time.Now().Add(-time.Hour)
		if err := s.InsertEntry(used); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
		if err := s.TouchEntry("used", time.Now().Add(-30*time.Minute)); err != nil {
			t.Fatalf("TouchEntry failed: %v", err)
		}
		if err := s.InsertEntry(testEntry("untouched", ownerID, "example.com", "b")); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}

		found, err := s.FindEntries(ownerID, "example.com", "")
		if err != nil {
			t.Fatalf("FindEntries failed: %v", err)
		}
		if len(found) != 2 || found[0].ID != "used" {
			t.Fatalf("never-used entry outranks a used one: %v", entryIDs(found))
		}
	})
}

func TestRecordFailedAttempt_ConcurrentIncrements(t *testing.T) {
	// A file-backed database so that concurrent transactions exercise real
	// locking instead of the single shared-cache page of an in-memory DB.
	dsn := "file:" + filepath.Join(t.TempDir(), "attempts.db") + "?_pragma=busy_timeout(10000)"
	s, err := NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	if _, err := s.CreateAccount(testAccount("alice")); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	const n = 16
	lockAt := time.Now().Add(time.Minute)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.RecordFailedAttempt("alice", 1000, lockAt)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent RecordFailedAttempt failed: %v", err)
		}
	}

	// Every increment must land; a read-modify-write in Go would lose some.
	a, err := s.GetAccountByUsername("alice")
	if err != nil {
		t.Fatalf("GetAccountByUsername failed: %v", err)
	}
	if a.FailedAttempts != n {
		t.Fatalf("failed_attempts = %d, want %d", a.FailedAttempts, n)
	}
}

func entryIDs(entries []model.VaultEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestListEntries_Filter(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		ownerID, err := s.CreateAccount(testAccount("alice"))
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		work := testEntry("w", ownerID, "github.com", "alice")
		work.Tags = "work,code"
		personal := testEntry("p", ownerID, "example.com", "alice")
		personal.Tags = "personal"
		if err := s.InsertEntry(work); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
		if err := s.InsertEntry(personal); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}

		all, err := s.ListEntries(ownerID, Filter{})
		if err != nil || len(all) != 2 {
			t.Fatalf("ListEntries all = %d, err %v", len(all), err)
		}
		byService, err := s.ListEntries(ownerID, Filter{Service: "github"})
		if err != nil || len(byService) != 1 || byService[0].ID != "w" {
			t.Fatalf("ListEntries service filter failed: %v err %v", byService, err)
		}
		byTag, err := s.ListEntries(ownerID, Filter{Tag: "personal"})
		if err != nil || len(byTag) != 1 || byTag[0].ID != "p" {
			t.Fatalf("ListEntries tag filter failed: %v err %v", byTag, err)
		}
	})
}

func TestReplaceEntrySecret_HistoryBound(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		ownerID, err := s.CreateAccount(testAccount("alice"))
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		e := testEntry("e1", ownerID, "example.com", "alice")
		if err := s.InsertEntry(e); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}

		const limit = 3
		base := time.Now()
		for i := 0; i < 5; i++ {
			ct := []byte{byte('A' + i)}
			if err := s.ReplaceEntrySecret("e1", ct, "", "work", 2, base.Add(time.Duration(i)*time.Second), limit); err != nil {
				t.Fatalf("ReplaceEntrySecret %d failed: %v", i, err)
			}
		}

		versions, err := s.EntryHistory("e1")
		if err != nil {
			t.Fatalf("EntryHistory failed: %v", err)
		}
		if len(versions) != limit {
			t.Fatalf("history length = %d, want %d", len(versions), limit)
		}
		// Newest first: last replacement pushed ciphertext 'D' (the value
		// current before the 5th replace).
		if string(versions[0].Ciphertext) != "D" {
			t.Errorf("newest history version = %q, want %q", versions[0].Ciphertext, "D")
		}

		got, err := s.GetEntry("e1")
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if string(got.Ciphertext) != "E" {
			t.Errorf("current ciphertext = %q, want %q", got.Ciphertext, "E")
		}
	})
}

func TestDeleteAccount_PurgesEntries(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		ownerID, err := s.CreateAccount(testAccount("alice"))
		if err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if err := s.InsertEntry(testEntry("e1", ownerID, "example.com", "a")); err != nil {
			t.Fatalf("InsertEntry failed: %v", err)
		}
		if err := s.ReplaceEntrySecret("e1", []byte("new"), "", "", 1, time.Now(), 5); err != nil {
			t.Fatalf("ReplaceEntrySecret failed: %v", err)
		}

		if err := s.DeleteAccount(ownerID); err != nil {
			t.Fatalf("DeleteAccount failed: %v", err)
		}
		if _, err := s.GetAccountByUsername("alice"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("account still present: %v", err)
		}
		if _, err := s.GetEntry("e1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("entry still present: %v", err)
		}
		versions, err := s.EntryHistory("e1")
		if err != nil {
			t.Fatalf("EntryHistory failed: %v", err)
		}
		if len(versions) != 0 {
			t.Fatalf("history still present: %d versions", len(versions))
		}
	})
}

func TestPolicyRoundTrip(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		if _, err := s.LoadPolicy(); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound before save, got %v", err)
		}
		p, err := policy.Preset(policy.TierEnterprise)
		if err != nil {
			t.Fatalf("Preset failed: %v", err)
		}
		if err := s.SavePolicy(p); err != nil {
			t.Fatalf("SavePolicy failed: %v", err)
		}
		got, err := s.LoadPolicy()
		if err != nil {
			t.Fatalf("LoadPolicy failed: %v", err)
		}
		if *got != p {
			t.Fatalf("policy round trip mismatch: got %+v want %+v", *got, p)
		}
		// Saving again overwrites rather than erroring.
		p.MaxAttempts = 7
		if err := s.SavePolicy(p); err != nil {
			t.Fatalf("SavePolicy overwrite failed: %v", err)
		}
		got, _ = s.LoadPolicy()
		if got.MaxAttempts != 7 {
			t.Fatalf("overwrite not applied: %d", got.MaxAttempts)
		}
	})
}

func TestAuditLog(t *testing.T) {
	WithTestStore(t, func(s *SqliteStore) {
		for i, kind := range []string{"login", "entry_put", "export"} {
			e := &model.AuditLogEntry{
				Timestamp: time.Now().Add(time.Duration(i) * time.Second),
				Actor:     "alice",
				EventKind: kind,
				Outcome:   "success",
			}
			if err := s.LogEvent(e); err != nil {
				t.Fatalf("LogEvent failed: %v", err)
			}
			if e.ID == 0 {
				t.Fatal("expected LogEvent to backfill the row ID")
			}
		}

		entries, err := s.AuditLog(2)
		if err != nil {
			t.Fatalf("AuditLog failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("AuditLog limit ignored: got %d entries", len(entries))
		}
		if entries[0].EventKind != "export" {
			t.Fatalf("expected newest first, got %q", entries[0].EventKind)
		}
	})
}
