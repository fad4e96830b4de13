package main

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/forest6511/totpctl/internal/display"
	"github.com/forest6511/totpctl/internal/tui"
	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/vault"
)

// uiCmd shows a live view of every code
var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Shows live codes for all credentials",
	Long: `Shows every credential with its current code and a countdown until it
changes. Use the arrow keys or j/k to move and q or Esc to quit. Changes made
to the vault from another terminal appear automatically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, pass, err := openVault(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer pass.Destroy()

		ctx, stop := signal.NotifyContext(cmd.Context(), signalsToNotify()...)
		reload, wait := watchVault(ctx, pass)
		defer func() {
			stop()
			wait()
		}()

		coord := display.New(reg.Entries(),
			display.WithPollInterval(cfg.PollInterval),
			display.WithRowHeight(cfg.RowHeight),
		)

		screen := tui.New(os.Stdin, os.Stdout)
		restore, err := screen.Enter()
		if err != nil {
			return err
		}
		defer restore()
		defer func() {
			if r := recover(); r != nil {
				restore()
				panic(r)
			}
		}()

		return coord.Run(ctx, screen, reload)
	},
}

// watchVault reloads the vault whenever the file changes and sends the new
// entries on the returned channel. wait blocks until the reloader has
// stopped, which happens once ctx is done; pass must stay alive until then.
func watchVault(ctx context.Context, pass *crypto.Passphrase) (<-chan []vault.Entry, func()) {
	fs, ok := repo.(*vault.FileStore)
	if !ok {
		return nil, func() {}
	}
	changes, err := fs.Watch(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("live reload disabled")
		return nil, func() {}
	}

	out := make(chan []vault.Entry, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range changes {
			reg, err := fs.Load(pass)
			if err != nil {
				log.Debug().Err(err).Msg("vault reload failed")
				continue
			}
			// keep only the newest snapshot
			select {
			case <-out:
			default:
			}
			out <- reg.Entries()
		}
	}()
	return out, wg.Wait
}
