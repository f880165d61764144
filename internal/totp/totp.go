// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package totp wraps time-based one-time password generation and validation
// for the optional second authentication factor.
package totp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const issuer = "Strongbox"

// Enrollment holds the material handed to a user enrolling a second factor.
// The seed is shown exactly once at registration.
type Enrollment struct {
	Seed string // base32 secret for authenticator apps
	URL  string // otpauth:// provisioning URI
}

// NewSeed generates a fresh TOTP secret for the given account name.
func NewSeed(account string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp seed: %w", err)
	}
	return &Enrollment{Seed: key.Secret(), URL: key.URL()}, nil
}

// Verify checks a 6-digit code against the seed at the given instant,
// accepting one 30-second period of clock skew in either direction.
func Verify(seed, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, seed, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// Code computes the current code for a seed. Used by tests and by the CLI's
// enrollment confirmation step.
func Code(seed string, at time.Time) (string, error) {
	code, err := totp.GenerateCode(seed, at)
	if err != nil {
		return "", fmt.Errorf("failed to compute totp code: %w", err)
	}
	return code, nil
}
