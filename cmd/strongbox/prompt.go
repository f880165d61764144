// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verdantfox/strongbox/internal/i18n"
)

// promptSecret reads a line without echo. Prompts go to stderr so stdout
// stays clean for piping.
func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(b), nil
	}
	// Non-interactive stdin (tests, pipes): read a line.
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptMasterPassword asks for the master password once.
func promptMasterPassword() (string, error) {
	return promptSecret(i18n.T("password_prompt"))
}

// promptNewPassword asks for a password twice and requires both entries to
// match.
func promptNewPassword() (string, error) {
	first, err := promptSecret(i18n.T("password_prompt"))
	if err != nil {
		return "", err
	}
	second, err := promptSecret(i18n.T("password_confirm_prompt"))
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("%s", i18n.T("password_mismatch"))
	}
	return first, nil
}
