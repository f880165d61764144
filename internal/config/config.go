// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// package config loads application configuration from files, environment
// variables and command-line flags, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the application configuration as loaded at startup. The policy
// override fields only matter the first time a vault is used; after that the
// persisted policy wins.
type Config struct {
	DBType string `mapstructure:"db_type" yaml:"db_type"`
	DBDSN  string `mapstructure:"db_dsn" yaml:"db_dsn"`
	Lang   string `mapstructure:"lang" yaml:"lang"`
	Debug  bool   `mapstructure:"debug" yaml:"debug"`
	Tier   string `mapstructure:"tier" yaml:"tier"`

	MinLength       int           `mapstructure:"min_length" yaml:"min_length,omitempty"`
	MinStrength     int           `mapstructure:"min_strength" yaml:"min_strength,omitempty"`
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts,omitempty"`
	LockoutDuration time.Duration `mapstructure:"lockout_duration" yaml:"lockout_duration,omitempty"`
	SessionTimeout  time.Duration `mapstructure:"session_timeout" yaml:"session_timeout,omitempty"`
}

// flagKeys maps config keys to the CLI flag names that may override them.
var flagKeys = map[string]string{
	"db_type": "db-type",
	"db_dsn":  "db-dsn",
	"lang":    "lang",
	"debug":   "debug",
	"tier":    "tier",
}

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Strongbox")
		default: // Linux, macOS, etc.
			configDir = "/etc/strongbox"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "strongbox")
	}

	return filepath.Join(configDir, "strongbox.yaml"), nil
}

// DefaultDSN returns the default SQLite database path inside the user config
// directory.
func DefaultDSN() string {
	if path, err := getConfigPath(false); err == nil {
		return filepath.Join(filepath.Dir(path), "strongbox.db")
	}
	return "strongbox.db"
}

// LoadConfig resolves configuration with the following precedence, lowest
// first: built-in defaults, config files, environment variables (STRONGBOX_*),
// command-line flags.
func LoadConfig(cmd *cobra.Command, configFilePath *string) (Config, error) {
	var c Config
	v := viper.New()

	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_dsn", DefaultDSN())
	v.SetDefault("lang", "en")
	v.SetDefault("debug", false)
	v.SetDefault("tier", "basic")

	v.SetConfigName("strongbox")
	v.SetConfigType("yaml")

	// An explicit --config path has the highest file precedence.
	if configFilePath != nil && *configFilePath != "" {
		v.SetConfigFile(*configFilePath)
	}

	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; anything else is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("strongbox")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Flag names use dashes while config keys use underscores, so the flags
	// are bound per key rather than wholesale.
	if cmd != nil {
		for key, name := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteConfigFile persists the configuration to the user or system config
// path in YAML form.
func WriteConfigFile(c *Config, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the config may carry a DSN with credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}

	return nil
}
