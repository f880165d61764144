// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package generator

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// Strength is the result of evaluating a secret: a bucketed 0..4 score, the
// underlying entropy estimate, a human crack-time estimate and feedback
// suggestions. Evaluation is deterministic.
type Strength struct {
	Score       int
	EntropyBits float64
	CrackTime   string
	Feedback    []string
}

// Assumed offline attack rate for the crack-time estimate.
const guessesPerSecond = 1e10

// Evaluate scores a secret from its character-class diversity and length.
// The entropy estimate is length times log2 of the effective alphabet size.
func Evaluate(secret string) Strength {
	if secret == "" {
		return Strength{Score: 0, CrackTime: "instant", Feedback: []string{"secret is empty"}}
	}

	var alphabet int
	var feedback []string
	if strings.ContainsAny(secret, lowerChars) {
		alphabet += 26
	} else {
		feedback = append(feedback, "add lowercase letters")
	}
	if strings.ContainsAny(secret, upperChars) {
		alphabet += 26
	} else {
		feedback = append(feedback, "add uppercase letters")
	}
	if strings.ContainsAny(secret, digitChars) {
		alphabet += 10
	} else {
		feedback = append(feedback, "add digits")
	}
	if strings.ContainsAny(secret, symbolChars) {
		alphabet += 32
	} else {
		feedback = append(feedback, "add symbols")
	}
	// Characters outside all four classes (spaces, non-ASCII) widen the
	// alphabet by a nominal extra class. This also keeps the estimate finite
	// for secrets made entirely of such characters.
	if containsOtherChars(secret) {
		alphabet += 32
	}

	length := utf8.RuneCountInString(secret)
	if length < 12 {
		feedback = append(feedback, "use at least 12 characters")
	}

	entropy := float64(length) * math.Log2(float64(alphabet))
	score := scoreFromEntropy(entropy)
	if score >= 3 {
		feedback = nil
	}

	return Strength{
		Score:       score,
		EntropyBits: entropy,
		CrackTime:   crackTime(entropy),
		Feedback:    feedback,
	}
}

func containsOtherChars(secret string) bool {
	for _, r := range secret {
		if !strings.ContainsRune(lowerChars, r) && !strings.ContainsRune(upperChars, r) &&
			!strings.ContainsRune(digitChars, r) && !strings.ContainsRune(symbolChars, r) {
			return true
		}
	}
	return false
}

func scoreFromEntropy(bits float64) int {
	switch {
	case bits < 28:
		return 0
	case bits < 36:
		return 1
	case bits < 60:
		return 2
	case bits < 128:
		return 3
	default:
		return 4
	}
}

// crackTime renders the expected time to exhaust half the search space at the
// assumed guess rate.
func crackTime(bits float64) string {
	// Cap the exponent before math.Pow overflows to +Inf for huge secrets.
	if bits > 256 {
		return "centuries"
	}
	seconds := math.Pow(2, bits-1) / guessesPerSecond
	switch {
	case seconds < 1:
		return "instant"
	case seconds < 60:
		return fmt.Sprintf("%.0f seconds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.0f minutes", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%.0f hours", seconds/3600)
	case seconds < 86400*365:
		return fmt.Sprintf("%.0f days", seconds/86400)
	case seconds < 86400*365*100:
		return fmt.Sprintf("%.0f years", seconds/(86400*365))
	default:
		return "centuries"
	}
}
