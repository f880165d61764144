// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrAuthentication is the generic login failure. Unknown usernames and wrong
// passwords both map to it so a caller cannot probe which part was wrong.
var ErrAuthentication = errors.New("authentication failed")

// ErrMFARequired signals that the account has a second factor enrolled and
// the login attempt carried no code.
var ErrMFARequired = errors.New("one-time code required")

// ErrMFAVerification reports a rejected one-time code. The password check has
// already passed by this point, so naming the failing factor leaks nothing,
// and the caller can tell the user to retry the code rather than the password.
var ErrMFAVerification = errors.New("one-time code rejected")

// ErrSessionExpired is returned when a session has passed its deadline.
var ErrSessionExpired = errors.New("session expired")

// ErrSessionNotFound is returned for unknown or already closed session IDs.
var ErrSessionNotFound = errors.New("session not found")

// LockedError reports a locked-out account and when the lockout ends.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}
