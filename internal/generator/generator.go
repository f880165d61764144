// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// Package generator produces candidate secrets under a composition policy and
// scores secret strength. All randomness comes from crypto/rand.
package generator

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strings"
)

// Class identifies a character class a generated secret may be required to
// contain.
type Class int

const (
	Lower Class = 1 << iota
	Upper
	Digit
	Symbol
)

// AllClasses requires one character from each class.
const AllClasses = Lower | Upper | Digit | Symbol

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// Characters easily confused when read or transcribed.
	ambiguousChars = "l1IoO0"
	similarChars   = "ij1l|"

	// How many times generation retries before declaring the constraints
	// impossible (e.g. length shorter than the number of required classes).
	maxAttempts = 100
)

// GenerationError reports constraints that could not be satisfied within the
// retry bound.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("secret generation failed: %s", e.Reason)
}

// Options control secret generation.
type Options struct {
	Length int
	// Classes is the set of required character classes. At least one class
	// must be requested unless a custom alphabet is supplied.
	Classes Class
	// ExcludeAmbiguous removes characters like l/1/I/o/O/0 from the alphabet.
	ExcludeAmbiguous bool
	// ExcludeSimilar removes characters that render near-identically.
	ExcludeSimilar bool
	// Exclude removes specific characters from the alphabet.
	Exclude string
	// CustomAlphabet is appended to the alphabet built from the classes. If
	// no classes are requested it becomes the whole alphabet.
	CustomAlphabet string
}

func stripChars(s, drop string) string {
	if drop == "" {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if !strings.ContainsRune(drop, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// classSets returns the per-class alphabets after exclusions. The order is
// stable so the required-class check is deterministic.
func (o Options) classSets() []string {
	drop := o.Exclude
	if o.ExcludeAmbiguous {
		drop += ambiguousChars
	}
	if o.ExcludeSimilar {
		drop += similarChars
	}

	var sets []string
	for _, c := range []struct {
		class Class
		chars string
	}{
		{Lower, lowerChars},
		{Upper, upperChars},
		{Digit, digitChars},
		{Symbol, symbolChars},
	} {
		if o.Classes&c.class != 0 {
			if s := stripChars(c.chars, drop); s != "" {
				sets = append(sets, s)
			}
		}
	}
	if o.CustomAlphabet != "" {
		if s := stripChars(o.CustomAlphabet, drop); s != "" {
			sets = append(sets, s)
		}
	}
	return sets
}

// Generate builds an alphabet from the requested classes, draws characters
// from crypto/rand and retries until the result contains at least one
// character from every required class. It fails with GenerationError when the
// constraints cannot be met within the retry bound.
func Generate(o Options) (string, error) {
	if o.Length <= 0 {
		return "", &GenerationError{Reason: fmt.Sprintf("length must be positive, got %d", o.Length)}
	}
	sets := o.classSets()
	if len(sets) == 0 {
		return "", &GenerationError{Reason: "no character classes requested and no custom alphabet given"}
	}
	if o.Length < len(sets) {
		return "", &GenerationError{Reason: fmt.Sprintf("length %d cannot cover %d required character classes", o.Length, len(sets))}
	}

	alphabet := strings.Join(sets, "")
	buf := make([]byte, o.Length)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		for i := range buf {
			idx, err := randIndex(len(alphabet))
			if err != nil {
				return "", err
			}
			buf[i] = alphabet[idx]
		}
		candidate := string(buf)
		if coversAll(candidate, sets) {
			return candidate, nil
		}
	}
	return "", &GenerationError{Reason: "could not satisfy class requirements; constraints may be impossible"}
}

func coversAll(candidate string, sets []string) bool {
	for _, set := range sets {
		if !strings.ContainsAny(candidate, set) {
			return false
		}
	}
	return true
}

// randIndex returns a uniform random index in [0, n) from crypto/rand.
func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random source failed: %w", err)
	}
	return int(v.Int64()), nil
}

// fallbackWords keeps passphrase generation working without a wordlist file.
var fallbackWords = []string{
	"correct", "horse", "battery", "staple", "secure", "password",
	"generator", "system", "privacy", "encryption", "security",
}

// Passphrase generates a word-based secret. When wordlistPath is non-empty it
// is read as a diceware-style list (last whitespace-separated field per
// line); otherwise a small built-in list is used.
func Passphrase(wordCount int, separator, wordlistPath string) (string, error) {
	if wordCount <= 0 {
		return "", &GenerationError{Reason: fmt.Sprintf("word count must be positive, got %d", wordCount)}
	}
	words := fallbackWords
	if wordlistPath != "" {
		loaded, err := loadWordlist(wordlistPath)
		if err != nil {
			return "", err
		}
		words = loaded
	}
	picked := make([]string, wordCount)
	for i := range picked {
		idx, err := randIndex(len(words))
		if err != nil {
			return "", err
		}
		picked[i] = words[idx]
	}
	return strings.Join(picked, separator), nil
}

func loadWordlist(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wordlist: %w", err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		words = append(words, fields[len(fields)-1])
	}
	if len(words) == 0 {
		return nil, &GenerationError{Reason: "wordlist is empty"}
	}
	return words, nil
}
