// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapDBError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"sqlite unique", fmt.Errorf("constraint failed: UNIQUE constraint failed: accounts.username"), ErrDuplicate},
		{"mysql duplicate", fmt.Errorf("Error 1062: Duplicate entry 'alice'"), ErrDuplicate},
		{"postgres code", fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"), ErrDuplicate},
		{"other", errors.New("disk I/O error"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapDBError(tc.in)
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Fatalf("MapDBError(%v) = %v, want %v", tc.in, got, tc.want)
				}
				return
			}
			if tc.in == nil {
				if got != nil {
					t.Fatalf("MapDBError(nil) = %v, want nil", got)
				}
				return
			}
			if got != tc.in {
				t.Fatalf("MapDBError(%v) = %v, want passthrough", tc.in, got)
			}
		})
	}
}
