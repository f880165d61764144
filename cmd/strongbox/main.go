// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for Strongbox using the Cobra
// library. It defines the root command, subcommands (register, put, get,
// export and friends), flags, and the process exit-code mapping.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verdantfox/strongbox/internal/auth"
	"github.com/verdantfox/strongbox/internal/config"
	"github.com/verdantfox/strongbox/internal/db"
	"github.com/verdantfox/strongbox/internal/generator"
	"github.com/verdantfox/strongbox/internal/i18n"
	"github.com/verdantfox/strongbox/internal/kdf"
	"github.com/verdantfox/strongbox/internal/logging"
	"github.com/verdantfox/strongbox/internal/policy"
	"github.com/verdantfox/strongbox/internal/secret"
	"github.com/verdantfox/strongbox/internal/vault"
)

var version = "dev" // this will be set by the linker
var cfgFile string

// appConfig is the resolved configuration for this invocation, set by the
// root command before any subcommand runs.
var appConfig config.Config

// Process exit codes. Scripts key off these, so they are part of the CLI
// contract.
const (
	exitOK         = 0
	exitError      = 1
	exitPolicy     = 2
	exitAuth       = 3
	exitLocked     = 4
	exitDecrypt    = 5
	exitNotFound   = 6
	exitGeneration = 7
)

// exitCodeFor maps service errors onto the CLI exit-code contract.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var policyErr *policy.PasswordPolicyError
	var lockedErr *auth.LockedError
	var genErr *generator.GenerationError
	switch {
	case errors.As(err, &policyErr):
		return exitPolicy
	case errors.As(err, &lockedErr):
		return exitLocked
	case errors.As(err, &genErr):
		return exitGeneration
	case errors.Is(err, auth.ErrAuthentication),
		errors.Is(err, auth.ErrMFARequired),
		errors.Is(err, auth.ErrMFAVerification),
		errors.Is(err, auth.ErrSessionExpired):
		return exitAuth
	case errors.Is(err, kdf.ErrDecrypt), errors.Is(err, kdf.ErrKeyUnwrap):
		return exitDecrypt
	case errors.Is(err, vault.ErrEntryNotFound), errors.Is(err, db.ErrNotFound):
		return exitNotFound
	default:
		return exitError
	}
}

// main is the entry point of the application.
func main() {
	secret.InstallSignalHandler()
	defer secret.WipeAll()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		secret.WipeAll()
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd()
}

// newRootCmd creates and configures a new root cobra command. Tests create
// fresh instances for isolation.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strongbox",
		Short: "Strongbox is a local, single-vault credential manager.",
		Long: `Strongbox keeps credentials in an encrypted local vault.
Secrets are sealed under a data key that only exists in memory while a
master password is verified; the database stores ciphertext only.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadConfig(cmd, &cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			appConfig = c
			i18n.Init(c.Lang)
			logging.SetDebug(c.Debug)
			if err := db.InitDB(c.DBType, c.DBDSN); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			return nil
		},
	}

	cmd.AddCommand(registerCmd())
	cmd.AddCommand(unregisterCmd())
	cmd.AddCommand(loginCmd())
	cmd.AddCommand(logoutCmd())
	cmd.AddCommand(passwdCmd())
	cmd.AddCommand(generateCmd())
	cmd.AddCommand(strengthCmd())
	cmd.AddCommand(putCmd())
	cmd.AddCommand(getCmd())
	cmd.AddCommand(listCmd())
	cmd.AddCommand(deleteCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(auditCmd())
	cmd.AddCommand(maintenanceCmd())
	cmd.AddCommand(configCmd())

	cmd.Version = version

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is strongbox.yaml in the user config dir)")
	cmd.PersistentFlags().String("db-type", "sqlite", "Database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("db-dsn", config.DefaultDSN(), "Database connection string (DSN)")
	cmd.PersistentFlags().String("lang", "en", `CLI language ("en", "de")`)
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("tier", "basic", `Security tier for a new vault ("basic", "enterprise", "military")`)

	return cmd
}

// activePolicy returns the vault's persisted policy, creating it from the
// configured tier on first use. The policy is written exactly once; later
// runs always read the stored one so KDF parameters never drift.
func activePolicy() (policy.Policy, error) {
	store := db.ActiveStore()
	if p, err := store.LoadPolicy(); err == nil {
		return *p, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		return policy.Policy{}, err
	}

	p, err := policy.Preset(policy.Tier(appConfig.Tier))
	if err != nil {
		return policy.Policy{}, err
	}
	// Field overrides apply only here, before the policy is frozen.
	p = p.Apply(policy.Override{
		MinLength:       appConfig.MinLength,
		MinStrength:     appConfig.MinStrength,
		MaxAttempts:     appConfig.MaxAttempts,
		LockoutDuration: appConfig.LockoutDuration,
		SessionTimeout:  appConfig.SessionTimeout,
	})
	if err := p.Validate(); err != nil {
		return policy.Policy{}, err
	}
	if err := store.SavePolicy(p); err != nil {
		return policy.Policy{}, fmt.Errorf("failed to persist vault policy: %w", err)
	}
	return p, nil
}

func rootDBType() string { return appConfig.DBType }
func rootDSN() string    { return appConfig.DBDSN }

// newAuthManager builds an auth manager over the active store and policy.
func newAuthManager() (*auth.Manager, error) {
	p, err := activePolicy()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(db.ActiveStore(), p), nil
}
