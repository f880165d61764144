// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package generator

import (
	"math"
	"strings"
	"testing"
)

func TestEvaluate_Buckets(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		want   int
	}{
		{"empty", "", 0},
		{"short digits", "1234", 0},              // 4 * log2(10) ≈ 13 bits
		{"medium lowercase", "abcdefg", 1},       // 7 * log2(26) ≈ 33 bits
		{"longer mixed", "s3cr3tpw", 2},          // 8 * log2(36) ≈ 41 bits
		{"strong mixed", "Tr0ub4dor&3!xyz", 3},   // 15 * log2(94) ≈ 98 bits
		{"very long mixed", strings.Repeat("Tr0ub4dor&3!", 3), 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.secret)
			if got.Score != tc.want {
				t.Fatalf("Evaluate(%q).Score = %d (%.1f bits), want %d",
					tc.secret, got.Score, got.EntropyBits, tc.want)
			}
		})
	}
}

func TestEvaluate_NonASCII(t *testing.T) {
	// Secrets made entirely of characters outside the four classes must still
	// yield a finite, positive estimate.
	got := Evaluate("пароль-секрет日本語")
	if math.IsInf(got.EntropyBits, 0) || math.IsNaN(got.EntropyBits) {
		t.Fatalf("entropy = %v, want a finite value", got.EntropyBits)
	}
	if got.EntropyBits <= 0 || got.Score < 0 {
		t.Fatalf("unexpected result for non-ASCII secret: %+v", got)
	}

	// The estimate counts runes, not bytes: two-byte characters must not be
	// scored as twice the length.
	short := Evaluate("ддд")
	long := Evaluate("дддддддддддд")
	if short.EntropyBits >= long.EntropyBits {
		t.Fatalf("rune count ignored: %v >= %v", short.EntropyBits, long.EntropyBits)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	a := Evaluate("Tr0ub4dor&3!xyz")
	b := Evaluate("Tr0ub4dor&3!xyz")
	if a.Score != b.Score || a.EntropyBits != b.EntropyBits || a.CrackTime != b.CrackTime {
		t.Fatal("evaluation must be deterministic")
	}
}

func TestEvaluate_Feedback(t *testing.T) {
	weak := Evaluate("abc")
	if len(weak.Feedback) == 0 {
		t.Fatal("weak secret should carry feedback")
	}
	hasLengthHint := false
	for _, f := range weak.Feedback {
		if strings.Contains(f, "12 characters") {
			hasLengthHint = true
		}
	}
	if !hasLengthHint {
		t.Fatalf("expected length hint in feedback, got %v", weak.Feedback)
	}

	strong := Evaluate("Tr0ub4dor&3!xyz")
	if len(strong.Feedback) != 0 {
		t.Fatalf("strong secret should have no feedback, got %v", strong.Feedback)
	}
}

func TestEvaluate_CrackTime(t *testing.T) {
	if got := Evaluate("").CrackTime; got != "instant" {
		t.Fatalf("empty secret crack time = %q, want instant", got)
	}
	if got := Evaluate(strings.Repeat("Tr0ub4dor&3!", 10)).CrackTime; got != "centuries" {
		t.Fatalf("huge secret crack time = %q, want centuries", got)
	}
}
