// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdantfox/strongbox/internal/auth"
	"github.com/verdantfox/strongbox/internal/config"
	"github.com/verdantfox/strongbox/internal/db"
	"github.com/verdantfox/strongbox/internal/generator"
	"github.com/verdantfox/strongbox/internal/i18n"
	"github.com/verdantfox/strongbox/internal/kdf"
	"github.com/verdantfox/strongbox/internal/secret"
	"github.com/verdantfox/strongbox/internal/vault"
)

// login authenticates a one-shot CLI session: prompt for the master password
// (and rely on --code for the second factor) and return the manager plus the
// open session. Callers must Logout when done.
func login(username, mfaCode string) (*auth.Manager, *auth.Session, error) {
	if username == "" {
		return nil, nil, fmt.Errorf("--user is required")
	}
	mgr, err := newAuthManager()
	if err != nil {
		return nil, nil, err
	}
	password, err := promptMasterPassword()
	if err != nil {
		return nil, nil, err
	}
	sess, err := mgr.Authenticate(username, password, mfaCode)
	if errors.Is(err, auth.ErrMFARequired) {
		// The account has a second factor and no --code was given; ask once.
		var code string
		code, err = promptSecret("One-time code: ")
		if err != nil {
			return nil, nil, err
		}
		sess, err = mgr.Authenticate(username, password, code)
	}
	if err != nil {
		return nil, nil, err
	}
	return mgr, sess, nil
}

func registerCmd() *cobra.Command {
	var username string
	var mfa bool
	var admin bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a vault account",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newAuthManager()
			if err != nil {
				return err
			}
			password, err := promptNewPassword()
			if err != nil {
				return err
			}
			perms := []string{"user"}
			if admin {
				perms = []string{"admin", "user"}
			}
			_, enrollment, err := mgr.Register(username, password, perms, mfa)
			if err != nil {
				return err
			}
			fmt.Println(i18n.T("register_success"))
			if enrollment != nil {
				fmt.Println(i18n.T("register_mfa_seed"))
				fmt.Println("  " + enrollment.Seed)
				fmt.Println(i18n.T("register_mfa_url"))
				fmt.Println("  " + enrollment.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().BoolVar(&mfa, "mfa", false, "Enroll a TOTP second factor")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin permission")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func unregisterCmd() *cobra.Command {
	var username, code string
	cmd := &cobra.Command{
		Use:   "unregister",
		Short: "Delete an account and all of its entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--user is required")
			}
			mgr, err := newAuthManager()
			if err != nil {
				return err
			}
			password, err := promptMasterPassword()
			if err != nil {
				return err
			}
			sess, err := mgr.Authenticate(username, password, code)
			if err != nil {
				return err
			}
			return mgr.DeleteAccount(sess.ID, password)
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func loginCmd() *cobra.Command {
	var username, code string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify the master password and report vault status",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, sess, err := login(username, code)
			if err != nil {
				return err
			}
			defer mgr.Logout(sess.ID)
			fmt.Println(i18n.T("login_success"))
			fmt.Printf("  session timeout: %s\n", mgr.Policy().SessionTimeout)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Wipe any secret material held by this process",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret.WipeAll()
			fmt.Println(i18n.T("logout_success"))
			return nil
		},
	}
}

func passwdCmd() *cobra.Command {
	var username, code string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the master password",
		Long: `Change the master password. The vault's data key is re-wrapped
under the new password; stored entries are not re-encrypted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--user is required")
			}
			mgr, err := newAuthManager()
			if err != nil {
				return err
			}
			oldPassword, err := promptMasterPassword()
			if err != nil {
				return err
			}
			sess, err := mgr.Authenticate(username, oldPassword, code)
			if err != nil {
				return err
			}
			defer mgr.Logout(sess.ID)

			fmt.Fprintln(os.Stderr, "New password:")
			newPassword, err := promptNewPassword()
			if err != nil {
				return err
			}
			return mgr.ChangePassword(sess.ID, oldPassword, newPassword)
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func generateCmd() *cobra.Command {
	var length int
	var noUpper, noDigits, noSymbols bool
	var excludeAmbiguous, excludeSimilar bool
	var exclude string
	var passphrase bool
	var words int
	var separator, wordlist string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random secret or passphrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out string
			var err error
			if passphrase {
				out, err = generator.Passphrase(words, separator, wordlist)
			} else {
				classes := generator.Lower
				if !noUpper {
					classes |= generator.Upper
				}
				if !noDigits {
					classes |= generator.Digit
				}
				if !noSymbols {
					classes |= generator.Symbol
				}
				out, err = generator.Generate(generator.Options{
					Length:           length,
					Classes:          classes,
					ExcludeAmbiguous: excludeAmbiguous,
					ExcludeSimilar:   excludeSimilar,
					Exclude:          exclude,
				})
			}
			if err != nil {
				return err
			}
			fmt.Println(out)
			s := generator.Evaluate(out)
			fmt.Fprintf(os.Stderr, "%s %d/4 (%.0f bits, %s)\n",
				i18n.T("generate_strength"), s.Score, s.EntropyBits, s.CrackTime)
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "length", 20, "Secret length in characters")
	cmd.Flags().BoolVar(&noUpper, "no-upper", false, "Drop uppercase letters")
	cmd.Flags().BoolVar(&noDigits, "no-digits", false, "Drop digits")
	cmd.Flags().BoolVar(&noSymbols, "no-symbols", false, "Drop symbols")
	cmd.Flags().BoolVar(&excludeAmbiguous, "exclude-ambiguous", false, "Drop ambiguous characters (l1IoO0)")
	cmd.Flags().BoolVar(&excludeSimilar, "exclude-similar", false, "Drop visually similar characters")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Drop these specific characters")
	cmd.Flags().BoolVar(&passphrase, "passphrase", false, "Generate a word-based passphrase instead")
	cmd.Flags().IntVar(&words, "words", 6, "Passphrase word count")
	cmd.Flags().StringVar(&separator, "separator", "-", "Passphrase word separator")
	cmd.Flags().StringVar(&wordlist, "wordlist", "", "Path to a diceware-style wordlist")
	return cmd
}

func strengthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strength",
		Short: "Evaluate the strength of a secret read from the prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := promptSecret("Secret: ")
			if err != nil {
				return err
			}
			s := generator.Evaluate(value)
			fmt.Printf("%s %d/4 (%.0f bits, %s)\n",
				i18n.T("generate_strength"), s.Score, s.EntropyBits, s.CrackTime)
			for _, f := range s.Feedback {
				fmt.Println("  - " + f)
			}
			return nil
		},
	}
}

func putCmd() *cobra.Command {
	var username, code, service, loginName, notes, tags string
	var genLength int
	var genSecret bool
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store or replace a secret for a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, sess, err := login(username, code)
			if err != nil {
				return err
			}
			defer mgr.Logout(sess.ID)

			var value string
			if genSecret {
				value, err = generator.Generate(generator.Options{
					Length:  genLength,
					Classes: generator.AllClasses,
				})
				if err != nil {
					return err
				}
			} else {
				value, err = promptSecret("Secret: ")
				if err != nil {
					return err
				}
			}

			v := vault.New(db.ActiveStore(), mgr)
			res, err := v.Put(sess.ID, service, loginName, value, notes, tags)
			if err != nil {
				return err
			}
			if res.Replaced {
				fmt.Println(i18n.T("entry_replaced"))
			} else {
				fmt.Println(i18n.T("entry_stored"))
			}
			if genSecret {
				fmt.Println(value)
			}
			if res.Strength.Score < 2 {
				fmt.Fprintln(os.Stderr, i18n.T("entry_weak_warning"))
				for _, f := range res.Strength.Feedback {
					fmt.Fprintln(os.Stderr, "  - "+f)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	cmd.Flags().StringVar(&service, "service", "", "Service name")
	cmd.Flags().StringVar(&loginName, "login", "", "Login name at the service")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().BoolVar(&genSecret, "generate", false, "Generate the secret instead of prompting")
	cmd.Flags().IntVar(&genLength, "length", 20, "Generated secret length")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func getCmd() *cobra.Command {
	var username, code, service, loginName string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve a secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, sess, err := login(username, code)
			if err != nil {
				return err
			}
			defer mgr.Logout(sess.ID)

			v := vault.New(db.ActiveStore(), mgr)
			entry, err := v.Get(sess.ID, service, loginName)
			if err != nil {
				return err
			}
			// The secret alone goes to stdout; context goes to stderr.
			fmt.Fprintf(os.Stderr, "%s / %s\n", entry.Service, entry.LoginName)
			if entry.Notes != "" {
				fmt.Fprintln(os.Stderr, entry.Notes)
			}
			fmt.Println(entry.Secret)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	cmd.Flags().StringVar(&service, "service", "", "Service name")
	cmd.Flags().StringVar(&loginName, "login", "", "Login name (optional; most recently used wins)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func listCmd() *cobra.Command {
	var username, code, service, tag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries without touching secret material",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, sess, err := login(username, code)
			if err != nil {
				return err
			}
			defer mgr.Logout(sess.ID)

			v := vault.New(db.ActiveStore(), mgr)
			entries, err := v.List(sess.ID, db.Filter{Service: service, Tag: tag})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tLOGIN\tTAGS\tSTRENGTH\tLAST USED")
			for _, e := range entries {
				lastUsed := "-"
				if e.LastUsed != nil {
					lastUsed = e.LastUsed.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/4\t%s\n",
					e.Service, e.LoginName, e.Tags, e.StrengthScore, lastUsed)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	cmd.Flags().StringVar(&service, "service", "", "Filter by service substring")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag substring")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func deleteCmd() *cobra.Command {
	var username, code, service, loginName string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an entry and its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, sess, err := login(username, code)
			if err != nil {
				return err
			}
			defer mgr.Logout(sess.ID)

			v := vault.New(db.ActiveStore(), mgr)
			if err := v.Delete(sess.ID, service, loginName); err != nil {
				return err
			}
			fmt.Println(i18n.T("entry_deleted"))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	cmd.Flags().StringVar(&service, "service", "", "Service name")
	cmd.Flags().StringVar(&loginName, "login", "", "Login name (optional)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func historyCmd() *cobra.Command {
	var username, code, service, loginName string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show an entry's superseded secrets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, sess, err := login(username, code)
			if err != nil {
				return err
			}
			defer mgr.Logout(sess.ID)

			v := vault.New(db.ActiveStore(), mgr)
			versions, err := v.History(sess.ID, service, loginName)
			if err != nil {
				return err
			}
			for _, ver := range versions {
				fmt.Printf("%s\t%s\n", ver.ReplacedAt.Format(time.RFC3339), ver.Secret)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	cmd.Flags().StringVar(&service, "service", "", "Service name")
	cmd.Flags().StringVar(&loginName, "login", "", "Login name (optional)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func exportCmd() *cobra.Command {
	var username, code, outPath string
	var encrypt bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all entries to a backup file",
		Long: `Export all entries to a backup file. The plain format is gzip
compressed JSON; with --encrypt the backup is sealed under a separate
passphrase. Entries that fail to decrypt are skipped and reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, sess, err := login(username, code)
			if err != nil {
				return err
			}
			defer mgr.Logout(sess.ID)

			v := vault.New(db.ActiveStore(), mgr)
			var blob []byte
			var report *vault.ExportReport
			if encrypt {
				passphrase, perr := promptSecret(i18n.T("export_passphrase_prompt"))
				if perr != nil {
					return perr
				}
				p := mgr.Policy()
				blob, report, err = v.ExportEncrypted(sess.ID, passphrase, kdf.Params{
					Time:      p.ArgonTime,
					MemoryKiB: p.ArgonMemoryKiB,
					Threads:   p.ArgonThreads,
				})
			} else {
				blob, report, err = v.Export(sess.ID)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, blob, 0600); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Printf("%s %s (%d entries)\n", i18n.T("export_done"), outPath, report.Exported)
			if len(report.Failures) > 0 {
				fmt.Fprintln(os.Stderr, i18n.T("export_failures"))
				for _, f := range report.Failures {
					fmt.Fprintf(os.Stderr, "  %s (%s): %v\n", f.Service, f.EntryID, f.Err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Account username")
	cmd.Flags().StringVar(&code, "code", "", "TOTP one-time code")
	cmd.Flags().StringVar(&outPath, "out", "strongbox-export.bin", "Output file path")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "Seal the export under a passphrase")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func auditCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := db.ActiveStore().AuditLog(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(i18n.T("audit_empty"))
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tACTOR\tEVENT\tOUTCOME\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format(time.RFC3339), e.Actor, e.EventKind, e.Outcome,
					strings.ReplaceAll(e.Metadata, "\t", " "))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events to show")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var system bool
	save := &cobra.Command{
		Use:   "save",
		Short: "Write the resolved configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteConfigFile(&appConfig, system); err != nil {
				return err
			}
			fmt.Println(i18n.T("config_saved"))
			return nil
		},
	}
	save.Flags().BoolVar(&system, "system", false, "Write the system-wide config instead of the user one")
	cmd.AddCommand(save)
	return cmd
}

func maintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Run database maintenance (vacuum, optimize, integrity check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbType := rootDBType()
			dsn := rootDSN()
			if err := db.RunDBMaintenance(dbType, dsn); err != nil {
				return err
			}
			fmt.Println(i18n.T("maintenance_done"))
			return nil
		},
	}
}
