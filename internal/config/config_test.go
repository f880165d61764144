// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestLoadConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	c, err := LoadConfig(nil, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.DBType != "sqlite" {
		t.Errorf("DBType = %q, want sqlite", c.DBType)
	}
	if c.Lang != "en" {
		t.Errorf("Lang = %q, want en", c.Lang)
	}
	if c.Tier != "basic" {
		t.Errorf("Tier = %q, want basic", c.Tier)
	}
	if c.DBDSN == "" {
		t.Error("DBDSN default should not be empty")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STRONGBOX_DB_TYPE", "postgres")
	t.Setenv("STRONGBOX_DEBUG", "true")

	c, err := LoadConfig(nil, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.DBType != "postgres" {
		t.Errorf("DBType = %q, want postgres from env", c.DBType)
	}
	if !c.Debug {
		t.Error("Debug should be true from env")
	}
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "strongbox.yaml")
	content := "db_type: mysql\nlang: de\ntier: enterprise\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	c, err := LoadConfig(nil, &path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.DBType != "mysql" || c.Lang != "de" || c.Tier != "enterprise" {
		t.Fatalf("file values not applied: %+v", c)
	}
}

func TestLoadConfig_FlagOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STRONGBOX_DB_TYPE", "mysql")

	cmd := &cobra.Command{}
	cmd.Flags().String("db-type", "sqlite", "")
	cmd.Flags().String("lang", "en", "")
	if err := cmd.Flags().Set("db-type", "postgres"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	c, err := LoadConfig(cmd, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	// A changed flag beats the environment; an untouched one does not mask
	// lower-precedence sources.
	if c.DBType != "postgres" {
		t.Errorf("DBType = %q, want postgres from flag", c.DBType)
	}
	if c.Lang != "en" {
		t.Errorf("Lang = %q, want en", c.Lang)
	}
}

func TestLoadConfig_PolicyOverrides(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "strongbox.yaml")
	content := "max_attempts: 7\nsession_timeout: 30m\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	c, err := LoadConfig(nil, &path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if c.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", c.MaxAttempts)
	}
	if c.SessionTimeout != 30*time.Minute {
		t.Errorf("SessionTimeout = %v, want 30m", c.SessionTimeout)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "strongbox.yaml")
	if err := os.WriteFile(path, []byte("db_type: [unclosed"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfig(nil, &path); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

// chdirTemp moves the test into an empty directory so a stray strongbox.yaml
// in the working tree cannot leak into the results.
func chdirTemp(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}
