// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package auth implements account lifecycle and the login state machine:
// registration, password verification, failed-attempt lockout, the optional
// TOTP second factor, and in-memory sessions holding the unwrapped data key.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verdantfox/strongbox/internal/audit"
	"github.com/verdantfox/strongbox/internal/db"
	"github.com/verdantfox/strongbox/internal/generator"
	"github.com/verdantfox/strongbox/internal/kdf"
	"github.com/verdantfox/strongbox/internal/logging"
	"github.com/verdantfox/strongbox/internal/model"
	"github.com/verdantfox/strongbox/internal/policy"
	"github.com/verdantfox/strongbox/internal/secret"
	"github.com/verdantfox/strongbox/internal/totp"
)

// Session is a live authentication. It holds the unwrapped data key in
// memory only; the key is registered for wipe-on-exit and zeroed on logout
// or expiry. The deadline is fixed at login and never extended.
type Session struct {
	ID          string
	AccountID   int64
	Username    string
	Permissions string

	DataKey secret.Secret

	CreatedAt time.Time
	ExpiresAt time.Time

	wipeHandle uint64
}

// HasPermission reports whether the session's account carries the capability.
func (s *Session) HasPermission(perm string) bool {
	a := model.Account{Permissions: s.Permissions}
	return a.HasPermission(perm)
}

// Manager runs authentication against a store under a fixed vault policy.
type Manager struct {
	store db.Store
	aud   audit.Writer
	pol   policy.Policy
	clock Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a Manager. The policy should be the one persisted with
// the vault so KDF parameters match the stored verifiers.
func NewManager(s db.Store, pol policy.Policy) *Manager {
	return &Manager{
		store:    s,
		aud:      audit.NewWriter(s),
		pol:      pol,
		clock:    realClock{},
		sessions: make(map[string]*Session),
	}
}

// SetClock replaces the manager's time source. Tests only.
func (m *Manager) SetClock(c Clock) { m.clock = c }

// Policy returns the vault policy the manager enforces.
func (m *Manager) Policy() policy.Policy { return m.pol }

func (m *Manager) params() kdf.Params {
	return kdf.Params{
		Time:      m.pol.ArgonTime,
		MemoryKiB: m.pol.ArgonMemoryKiB,
		Threads:   m.pol.ArgonThreads,
	}
}

// Register creates a new account. The master password must satisfy the vault
// policy. When enrollMFA is set, a TOTP seed is generated and returned; this
// is the only time the caller sees it.
func (m *Manager) Register(username, password string, permissions []string, enrollMFA bool) (*model.Account, *totp.Enrollment, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil, fmt.Errorf("username must not be empty")
	}

	strength := generator.Evaluate(password)
	if err := m.pol.CheckPassword(password, strength.Score); err != nil {
		audit.Record(m.aud, username, audit.EventRegister, audit.OutcomeDenied, "password rejected by policy")
		return nil, nil, err
	}

	verifierSalt, err := kdf.NewSalt()
	if err != nil {
		return nil, nil, err
	}
	wrapSalt, err := kdf.NewSalt()
	if err != nil {
		return nil, nil, err
	}
	dataKey, err := kdf.NewDataKey()
	if err != nil {
		return nil, nil, err
	}
	defer zero(dataKey)

	pw := []byte(password)
	verifier := kdf.MakeVerifier(pw, verifierSalt, m.params())
	wrappingKey := kdf.Derive(pw, wrapSalt, m.params())
	defer zero(wrappingKey)

	wrapped, err := kdf.Wrap(dataKey, wrappingKey)
	if err != nil {
		return nil, nil, err
	}

	var enrollment *totp.Enrollment
	seed := ""
	if enrollMFA {
		enrollment, err = totp.NewSeed(username)
		if err != nil {
			return nil, nil, err
		}
		seed = enrollment.Seed
	}

	perms := "user"
	if len(permissions) > 0 {
		perms = strings.Join(permissions, ",")
	}

	account := &model.Account{
		Username:       username,
		Verifier:       verifier,
		VerifierSalt:   verifierSalt,
		WrappedDataKey: wrapped,
		WrapSalt:       wrapSalt,
		MFASeed:        seed,
		Permissions:    perms,
		CreatedAt:      m.clock.Now(),
	}
	if _, err := m.store.CreateAccount(account); err != nil {
		if err == db.ErrDuplicate {
			audit.Record(m.aud, username, audit.EventRegister, audit.OutcomeFailure, "username taken")
			return nil, nil, fmt.Errorf("username %q is already taken", username)
		}
		return nil, nil, fmt.Errorf("failed to create account: %w", err)
	}

	audit.Record(m.aud, username, audit.EventRegister, audit.OutcomeSuccess, "")
	logging.Infof("registered account %s", username)
	return account, enrollment, nil
}

// Authenticate runs the login state machine. On success it returns a session
// holding the unwrapped data key, valid until a fixed deadline. Failures
// before the password check are deliberately uniform: unknown usernames and
// wrong passwords both return ErrAuthentication. A locked account fails
// before the password is even checked, so lockout cannot be used as a
// password oracle either. A rejected one-time code is counted like a wrong
// password but reported as ErrMFAVerification.
func (m *Manager) Authenticate(username, password, mfaCode string) (*Session, error) {
	now := m.clock.Now()

	account, err := m.store.GetAccountByUsername(username)
	if err != nil {
		if err == db.ErrNotFound {
			audit.Record(m.aud, username, audit.EventLogin, audit.OutcomeFailure, "unknown username")
			return nil, ErrAuthentication
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if account.Locked(now) {
		audit.Record(m.aud, username, audit.EventLogin, audit.OutcomeDenied, "account locked")
		return nil, &LockedError{Until: *account.LockedUntil}
	}

	pw := []byte(password)
	if !kdf.CheckVerifier(pw, account.VerifierSalt, account.Verifier, m.params()) {
		return nil, m.recordFailure(username, now, "wrong password")
	}

	if account.MFASeed != "" {
		if mfaCode == "" {
			audit.Record(m.aud, username, audit.EventMFAChallenge, audit.OutcomeDenied, "code required")
			return nil, ErrMFARequired
		}
		if !totp.Verify(account.MFASeed, mfaCode, now) {
			audit.Record(m.aud, username, audit.EventMFAChallenge, audit.OutcomeFailure, "")
			err := m.recordFailure(username, now, "wrong one-time code")
			var lockedErr *LockedError
			if errors.As(err, &lockedErr) {
				return nil, err
			}
			return nil, ErrMFAVerification
		}
		audit.Record(m.aud, username, audit.EventMFAChallenge, audit.OutcomeSuccess, "")
	}

	wrappingKey := kdf.Derive(pw, account.WrapSalt, m.params())
	defer zero(wrappingKey)
	dataKey, err := kdf.Unwrap(account.WrappedDataKey, wrappingKey)
	if err != nil {
		// The verifier matched but the wrap did not open. The stored blob is
		// damaged; surface that instead of a generic login failure.
		audit.Record(m.aud, username, audit.EventLogin, audit.OutcomeFailure, "wrapped key damaged")
		return nil, err
	}

	// The counter resets only once the login fully succeeded, unwrap included.
	if err := m.store.ResetAttempts(username); err != nil {
		logging.Warnf("auth: failed to reset attempt counter for %s: %v", username, err)
	}

	sess := &Session{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Username:    account.Username,
		Permissions: account.Permissions,
		DataKey:     secret.FromBytes(dataKey),
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.pol.SessionTimeout),
	}
	zero(dataKey)
	sess.wipeHandle = secret.Register(&sess.DataKey)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	audit.Record(m.aud, username, audit.EventLogin, audit.OutcomeSuccess, "")
	logging.Debugf("session %s opened for %s", sess.ID, username)
	return sess, nil
}

// recordFailure increments the account's failure counter and translates the
// result into the right error. The increment and the lockout decision happen
// in one store transaction.
func (m *Manager) recordFailure(username string, now time.Time, reason string) error {
	lockedUntil := now.Add(m.pol.LockoutDuration)
	attempts, locked, err := m.store.RecordFailedAttempt(username, m.pol.MaxAttempts, lockedUntil)
	if err != nil {
		logging.Warnf("auth: failed to record failed attempt for %s: %v", username, err)
		return ErrAuthentication
	}
	if locked {
		audit.Record(m.aud, username, audit.EventLockout, audit.OutcomeDenied,
			fmt.Sprintf("locked after %d attempts", attempts))
		return &LockedError{Until: lockedUntil}
	}
	audit.Record(m.aud, username, audit.EventLogin, audit.OutcomeFailure, reason)
	return ErrAuthentication
}

// CheckSession validates a session ID against its fixed deadline. Activity
// does not extend the lifetime. An expired session is wiped and removed
// before ErrSessionExpired is returned.
func (m *Manager) CheckSession(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.clock.Now().After(sess.ExpiresAt) {
		secret.Unregister(sess.wipeHandle)
		delete(m.sessions, id)
		audit.Record(m.aud, sess.Username, audit.EventLogout, audit.OutcomeSuccess, "session expired")
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Logout closes a session and wipes its data key. Closing an unknown session
// is not an error.
func (m *Manager) Logout(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	secret.Unregister(sess.wipeHandle)
	audit.Record(m.aud, sess.Username, audit.EventLogout, audit.OutcomeSuccess, "")
}

// ChangePassword re-derives the verifier and re-wraps the data key under the
// new password. Stored entries are untouched; only the wrap changes.
func (m *Manager) ChangePassword(sessionID, oldPassword, newPassword string) error {
	sess, err := m.CheckSession(sessionID)
	if err != nil {
		return err
	}
	account, err := m.store.GetAccountByUsername(sess.Username)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	oldPW := []byte(oldPassword)
	if !kdf.CheckVerifier(oldPW, account.VerifierSalt, account.Verifier, m.params()) {
		audit.Record(m.aud, sess.Username, audit.EventPasswordChange, audit.OutcomeFailure, "wrong current password")
		return ErrAuthentication
	}

	strength := generator.Evaluate(newPassword)
	if err := m.pol.CheckPassword(newPassword, strength.Score); err != nil {
		audit.Record(m.aud, sess.Username, audit.EventPasswordChange, audit.OutcomeDenied, "new password rejected by policy")
		return err
	}

	verifierSalt, err := kdf.NewSalt()
	if err != nil {
		return err
	}
	wrapSalt, err := kdf.NewSalt()
	if err != nil {
		return err
	}

	newPW := []byte(newPassword)
	verifier := kdf.MakeVerifier(newPW, verifierSalt, m.params())
	wrappingKey := kdf.Derive(newPW, wrapSalt, m.params())
	defer zero(wrappingKey)

	// Wrap the session's live data key rather than unwrapping the stored one;
	// both are the same key and the session copy is already verified usable.
	var wrapped []byte
	err = sess.DataKey.Use(func(key []byte) error {
		var werr error
		wrapped, werr = kdf.Wrap(key, wrappingKey)
		return werr
	})
	if err != nil {
		return err
	}

	if err := m.store.UpdateCredentials(account.ID, verifier, verifierSalt, wrapped, wrapSalt); err != nil {
		return fmt.Errorf("failed to store new credentials: %w", err)
	}

	audit.Record(m.aud, sess.Username, audit.EventPasswordChange, audit.OutcomeSuccess, "")
	logging.Infof("password changed for %s", sess.Username)
	return nil
}

// DeleteAccount removes the account, all its entries and their history in one
// transaction, after re-verifying the password. The session is closed and its
// key wiped.
func (m *Manager) DeleteAccount(sessionID, password string) error {
	sess, err := m.CheckSession(sessionID)
	if err != nil {
		return err
	}
	account, err := m.store.GetAccountByUsername(sess.Username)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if !kdf.CheckVerifier([]byte(password), account.VerifierSalt, account.Verifier, m.params()) {
		audit.Record(m.aud, sess.Username, audit.EventAccountDelete, audit.OutcomeFailure, "wrong password")
		return ErrAuthentication
	}
	if err := m.store.DeleteAccount(account.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	m.Logout(sessionID)
	audit.Record(m.aud, sess.Username, audit.EventAccountDelete, audit.OutcomeSuccess, "")
	logging.Infof("deleted account %s", sess.Username)
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
