package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/failure"
	"github.com/forest6511/totpctl/pkg/totp"
	"github.com/forest6511/totpctl/pkg/vault"
)

// Flags for add command
var (
	addIssuer    string
	addAccount   string
	addAlgorithm string
	addDigits    int
	addPeriod    int
	addURI       string
)

// addCmd registers a new credential
var addCmd = &cobra.Command{
	Use:   "add <name> [key]",
	Short: "Adds a TOTP secret under a name",
	Long: `Adds a TOTP secret. The key is the base32 secret shown by the service
during two-factor setup; spaces, dashes and lower case are accepted. When the
key is omitted it is read from the terminal with echo disabled.

   totpctl add github
   totpctl add work JBSWY3DPEHPK3PXP --issuer Example
   totpctl add aws --uri 'otpauth://totp/AWS:alice?secret=...&issuer=AWS'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		entry, err := buildEntry(name, args[1:])
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(entry.Secret)

		// Check parameters before asking for the passphrase
		if _, err := totp.Generate(entry.Params(), now()); err != nil {
			return err
		}

		reg, pass, err := openVault(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer pass.Destroy()

		if err := reg.Add(entry); err != nil {
			return err
		}
		if err := saveVault(reg, pass); err != nil {
			return err
		}

		printf(cmd, "Credential '%s' added\n", vault.NormalizeName(name))
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addIssuer, "issuer", "", "Issuer label, e.g. GitHub")
	addCmd.Flags().StringVar(&addAccount, "account", "", "Account label, e.g. alice@example.com")
	addCmd.Flags().StringVar(&addAlgorithm, "algorithm", string(totp.SHA1), "Hash algorithm: SHA1, SHA256 or SHA512")
	addCmd.Flags().IntVar(&addDigits, "digits", totp.DefaultDigits, "Code length (6-8)")
	addCmd.Flags().IntVar(&addPeriod, "period", totp.DefaultPeriod, "Time step in seconds")
	addCmd.Flags().StringVar(&addURI, "uri", "", "otpauth:// URI instead of a key")
}

// buildEntry assembles the entry from the key argument, the --uri flag or a prompt.
func buildEntry(name string, keyArgs []string) (vault.Entry, error) {
	if addURI != "" {
		if len(keyArgs) > 0 {
			return vault.Entry{}, failure.New(failure.Input, "give either a key or --uri, not both")
		}
		key, err := totp.ParseURI(addURI)
		if err != nil {
			return vault.Entry{}, err
		}
		e := vault.NewEntry(name, key.Params.Secret)
		e.Algorithm = key.Params.Algorithm
		e.Digits = key.Params.Digits
		e.Period = key.Params.Period
		e.Issuer = firstNonEmpty(addIssuer, key.Issuer)
		e.Account = firstNonEmpty(addAccount, key.Account)
		return e, nil
	}

	var raw string
	if len(keyArgs) > 0 {
		raw = keyArgs[0]
	} else {
		b, err := prompter.Secret("Secret key (base32)")
		if err != nil {
			return vault.Entry{}, fmt.Errorf("failed to read key: %w", err)
		}
		raw = string(b)
		crypto.SecureWipe(b)
	}

	secret, err := totp.DecodeSecret(raw)
	if err != nil {
		return vault.Entry{}, err
	}
	alg, err := totp.ParseAlgorithm(addAlgorithm)
	if err != nil {
		return vault.Entry{}, err
	}

	e := vault.NewEntry(name, secret)
	e.Algorithm = alg
	e.Digits = addDigits
	e.Period = addPeriod
	e.Issuer = strings.TrimSpace(addIssuer)
	e.Account = strings.TrimSpace(addAccount)
	return e, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
