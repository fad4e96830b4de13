package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/forest6511/totpctl/internal/passphrase"
	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/failure"
	"github.com/forest6511/totpctl/pkg/vault"
)

// ErrSamePassphrase is returned when the new passphrase equals the current one.
var ErrSamePassphrase = failure.New(failure.Input, "new passphrase must be different from the current one")

// passphraseCmd is the parent command for master passphrase operations.
var passphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Master passphrase operations",
}

// passphraseChangeCmd re-encrypts the vault under a new passphrase.
var passphraseChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Change the master passphrase",
	Long: `Change the master passphrase.

The vault is decrypted with the current passphrase, re-encrypted under the
new one, and the stored passphrase in the system keychain is replaced. If the
keychain cannot be updated the vault is written back under the current
passphrase, so the two never disagree.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := currentPassphrase()
		if err != nil {
			return err
		}
		defer current.Destroy()

		var reg *vault.Registry
		if current != nil && repo.Encrypted() {
			if reg, err = repo.Load(current); err != nil {
				return err
			}
		}

		next, err := provider.Choose(cmd.Context())
		if err != nil {
			return err
		}
		defer next.Destroy()
		if current != nil && current.Equal(next) {
			return ErrSamePassphrase
		}

		if reg != nil {
			if err := saveVault(reg, next); err != nil {
				return err
			}
		}
		if err := provider.Replace(next); err != nil {
			if reg != nil {
				if rerr := saveVault(reg, current); rerr != nil {
					log.Error().Err(rerr).Msg("failed to restore vault under the previous passphrase")
				}
			}
			return err
		}

		printf(cmd, "Master passphrase changed\n")
		return nil
	},
}

// passphraseForgetCmd removes the stored passphrase from the keychain.
var passphraseForgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Remove the master passphrase from the system keychain",
	Long: `Remove the master passphrase from the system keychain.

The vault file is left untouched. The next command that opens the vault asks
for a passphrase again; it must be the same one to read existing entries.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := provider.Forget(); err != nil {
			return err
		}
		printf(cmd, "Master passphrase removed from the keychain\n")
		return nil
	},
}

func init() {
	passphraseCmd.AddCommand(passphraseChangeCmd)
	passphraseCmd.AddCommand(passphraseForgetCmd)
}

// currentPassphrase returns the stored passphrase, asking for it when the
// keychain has none but an encrypted vault already exists. It returns nil
// when there is nothing to verify against.
func currentPassphrase() (*crypto.Passphrase, error) {
	pass, err := provider.Lookup()
	if err == nil {
		return pass, nil
	}
	if !errors.Is(err, passphrase.ErrNotStored) {
		return nil, err
	}

	fs, ok := repo.(*vault.FileStore)
	if !ok || !fs.Exists() {
		return nil, nil
	}
	return provider.Ask("Current master passphrase")
}
