package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forest6511/totpctl/internal/config"
	"github.com/forest6511/totpctl/internal/keystore"
	"github.com/forest6511/totpctl/internal/passphrase"
	"github.com/forest6511/totpctl/internal/prompt"
	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/vault"
)

// Global flags
var (
	configPath  string
	vaultPath   string
	backendName string
	verbose     bool
)

// Process state, built once per invocation by setup.
var (
	cfg      *config.Config
	repo     vault.Repository
	provider *passphrase.Provider
	prompter prompt.Prompter
)

// Collaborators, replaced in tests.
var (
	newKeystore = keystore.New
	newPrompter = func() prompt.Prompter { return prompt.NewTerminal(os.Stdin, os.Stderr) }
	now         = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "totpctl",
	Short: "totpctl keeps TOTP secrets in an encrypted local vault",
	Long: `totpctl stores TOTP shared secrets encrypted under a master passphrase
and prints the current one-time codes, or shows them all in a live view.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE runs before the root command and all subcommands.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" {
			return nil
		}
		if err := disableCoreDumps(); err != nil {
			log.Warn().Err(err).Msg("failed to disable core dumps")
		}
		return setup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <user config dir>/totpctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault file path (overrides config and "+config.EnvVault+")")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Storage backend: file or keyring")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(passphraseCmd)
}

// setup loads configuration and wires the repository and passphrase provider.
// Later calls are no-ops.
func setup() error {
	if cfg != nil {
		return nil
	}

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if vaultPath != "" {
		c.VaultPath = vaultPath
	}
	if backendName != "" {
		c.Backend = backendName
	}
	if err := c.Validate(); err != nil {
		return err
	}
	configureLogging(c)

	store := keystore.NewEnvStore(newKeystore(), c.KeystoreService)
	prompter = newPrompter()
	provider = passphrase.New(store, prompter, passphrase.WithService(c.KeystoreService))

	switch c.Backend {
	case config.BackendKeyring:
		repo = vault.NewKeyringStore(store, c.KeystoreService)
	default:
		repo = vault.NewFileStore(c.VaultPath)
	}
	log.Debug().Str("backend", c.Backend).Str("location", repo.Location()).Msg("configured")

	cfg = c
	return nil
}

// configureLogging sends zerolog output to stderr in console format.
func configureLogging(c *config.Config) {
	level, _ := c.Level()
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(int(os.Stderr.Fd())),
	}
	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// openVault loads the registry, obtaining the passphrase first when the
// repository is encrypted. When readOnly is set and no vault file exists
// yet, an empty registry is returned without asking for a passphrase.
//
// A passphrase typed to unlock an existing vault is stored in the keychain
// only after it decrypts the vault. The returned passphrase may be nil;
// callers Destroy it when done.
func openVault(ctx context.Context, readOnly bool) (*vault.Registry, *crypto.Passphrase, error) {
	if !repo.Encrypted() {
		reg, err := repo.Load(nil)
		return reg, nil, err
	}
	exists := true
	if fs, ok := repo.(*vault.FileStore); ok {
		exists = fs.Exists()
	}
	if readOnly && !exists {
		return vault.NewRegistry(), nil, nil
	}

	var (
		pass     *crypto.Passphrase
		remember bool
		err      error
	)
	if exists {
		pass, err = provider.Lookup()
		if errors.Is(err, passphrase.ErrNotStored) {
			pass, err = provider.Ask("Master passphrase")
			remember = true
		}
	} else {
		pass, err = provider.Obtain(ctx)
	}
	if err != nil {
		return nil, nil, err
	}

	reg, err := repo.Load(pass)
	if err != nil {
		pass.Destroy()
		return nil, nil, err
	}
	if remember {
		if err := provider.Replace(pass); err != nil {
			log.Warn().Err(err).Msg("failed to store the master passphrase in the keychain")
		}
	}
	return reg, pass, nil
}

// saveVault persists reg.
func saveVault(reg *vault.Registry, pass *crypto.Passphrase) error {
	return repo.Save(reg, pass)
}

// isTerminal returns true if the file descriptor is a terminal
func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// writerIsTerminal reports whether w is a terminal file.
func writerIsTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(int(f.Fd()))
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
