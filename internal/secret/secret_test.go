// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package secret

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestSecret_Redaction(t *testing.T) {
	s := FromString("hunter2")

	if got := fmt.Sprintf("%v", s); got != "[SECRET]" {
		t.Errorf("%%v = %q, want [SECRET]", got)
	}
	if got := fmt.Sprintf("%s", s); got != "[SECRET]" {
		t.Errorf("%%s = %q, want [SECRET]", got)
	}
	if got := s.String(); got != "[SECRET]" {
		t.Errorf("String() = %q, want [SECRET]", got)
	}

	data, err := json.Marshal(struct{ Password Secret }{s})
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if string(data) != `{"Password":"[SECRET]"}` {
		t.Errorf("JSON = %s, want redacted", data)
	}
}

func TestSecret_BytesIsCopy(t *testing.T) {
	s := FromString("hunter2")
	b := s.Bytes()
	b[0] = 'X'
	if string(s.Bytes()) != "hunter2" {
		t.Fatal("Bytes() must return a copy")
	}
}

func TestSecret_Zero(t *testing.T) {
	s := FromString("hunter2")
	s.Zero()
	for i, b := range s {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, b)
		}
	}

	var nilSecret *Secret
	nilSecret.Zero() // must not panic
}

func TestRegistry_WipeAll(t *testing.T) {
	s1 := FromString("first")
	s2 := FromString("second")
	Register(&s1)
	Register(&s2)

	WipeAll()

	for _, s := range []Secret{s1, s2} {
		for _, b := range s {
			if b != 0 {
				t.Fatal("registered secret survived WipeAll")
			}
		}
	}
}

func TestRegistry_Unregister(t *testing.T) {
	s := FromString("ephemeral")
	id := Register(&s)
	Unregister(id)
	for _, b := range s {
		if b != 0 {
			t.Fatal("Unregister must zero the secret")
		}
	}
	// Unknown handles are ignored.
	Unregister(id)
	Unregister(999999)
}
