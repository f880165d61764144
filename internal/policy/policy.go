// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package policy defines the security policy that governs a vault: KDF cost,
// master password requirements, lockout thresholds and session lifetime.
// A policy is chosen once when the vault is created and persisted alongside
// it; it is not renegotiated per session.
package policy

import (
	"fmt"
	"time"
)

// Tier names a security preset.
type Tier string

const (
	TierBasic      Tier = "basic"
	TierEnterprise Tier = "enterprise"
	TierMilitary   Tier = "military"
)

// Policy is the immutable security configuration of a vault.
type Policy struct {
	Tier Tier `json:"tier"`

	// Argon2id cost parameters for both the verifier and the wrapping key.
	ArgonTime      uint32 `json:"argon_time"`
	ArgonMemoryKiB uint32 `json:"argon_memory_kib"`
	ArgonThreads   uint8  `json:"argon_threads"`

	// Master password requirements.
	MinLength   int `json:"min_length"`
	MinStrength int `json:"min_strength"` // 0..4

	// Brute-force handling and session lifetime.
	MaxAttempts     int           `json:"max_attempts"`
	LockoutDuration time.Duration `json:"lockout_duration"`
	SessionTimeout  time.Duration `json:"session_timeout"`
}

// Preset returns the named tier's policy.
func Preset(t Tier) (Policy, error) {
	switch t {
	case TierBasic:
		return Policy{
			Tier:            TierBasic,
			ArgonTime:       2,
			ArgonMemoryKiB:  32 * 1024,
			ArgonThreads:    2,
			MinLength:       12,
			MinStrength:     2,
			MaxAttempts:     10,
			LockoutDuration: 60 * time.Second,
			SessionTimeout:  time.Hour,
		}, nil
	case TierEnterprise:
		return Policy{
			Tier:            TierEnterprise,
			ArgonTime:       3,
			ArgonMemoryKiB:  64 * 1024,
			ArgonThreads:    4,
			MinLength:       16,
			MinStrength:     3,
			MaxAttempts:     5,
			LockoutDuration: 5 * time.Minute,
			SessionTimeout:  30 * time.Minute,
		}, nil
	case TierMilitary:
		return Policy{
			Tier:            TierMilitary,
			ArgonTime:       4,
			ArgonMemoryKiB:  128 * 1024,
			ArgonThreads:    8,
			MinLength:       20,
			MinStrength:     4,
			MaxAttempts:     3,
			LockoutDuration: 15 * time.Minute,
			SessionTimeout:  15 * time.Minute,
		}, nil
	default:
		return Policy{}, fmt.Errorf("unknown security tier: %q", t)
	}
}

// Override is a field-by-field adjustment applied on top of a preset.
// Zero-valued fields leave the preset untouched.
type Override struct {
	MinLength       int
	MinStrength     int
	MaxAttempts     int
	LockoutDuration time.Duration
	SessionTimeout  time.Duration
}

// Apply returns a copy of p with the non-zero override fields replaced.
func (p Policy) Apply(o Override) Policy {
	if o.MinLength > 0 {
		p.MinLength = o.MinLength
	}
	if o.MinStrength > 0 {
		p.MinStrength = o.MinStrength
	}
	if o.MaxAttempts > 0 {
		p.MaxAttempts = o.MaxAttempts
	}
	if o.LockoutDuration > 0 {
		p.LockoutDuration = o.LockoutDuration
	}
	if o.SessionTimeout > 0 {
		p.SessionTimeout = o.SessionTimeout
	}
	return p
}

// Validate rejects policies that would make the vault unusable or insecure.
func (p Policy) Validate() error {
	if p.ArgonTime == 0 || p.ArgonMemoryKiB == 0 || p.ArgonThreads == 0 {
		return fmt.Errorf("argon2 cost parameters must be non-zero")
	}
	if p.MinLength < 8 {
		return fmt.Errorf("minimum password length must be at least 8, got %d", p.MinLength)
	}
	if p.MinStrength < 0 || p.MinStrength > 4 {
		return fmt.Errorf("minimum strength must be within 0..4, got %d", p.MinStrength)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.LockoutDuration <= 0 || p.SessionTimeout <= 0 {
		return fmt.Errorf("lockout and session durations must be positive")
	}
	return nil
}

// PasswordPolicyError reports a master password that fails the policy,
// carrying the required and actual values so callers can explain the
// rejection.
type PasswordPolicyError struct {
	MinLength      int
	ActualLength   int
	MinStrength    int
	ActualStrength int
}

func (e *PasswordPolicyError) Error() string {
	if e.ActualLength < e.MinLength {
		return fmt.Sprintf("password too short: need at least %d characters, got %d", e.MinLength, e.ActualLength)
	}
	return fmt.Sprintf("password too weak: need strength %d/4, got %d/4", e.MinStrength, e.ActualStrength)
}

// CheckPassword validates length and a pre-computed strength score against
// the policy. Strength scoring itself lives in the generator package; the
// caller passes the score in so this package stays dependency-free.
func (p Policy) CheckPassword(password string, strength int) error {
	if len(password) < p.MinLength || strength < p.MinStrength {
		return &PasswordPolicyError{
			MinLength:      p.MinLength,
			ActualLength:   len(password),
			MinStrength:    p.MinStrength,
			ActualStrength: strength,
		}
	}
	return nil
}
