package main

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forest6511/totpctl/internal/display"
	"github.com/forest6511/totpctl/pkg/failure"
	"github.com/forest6511/totpctl/pkg/totp"
	"github.com/forest6511/totpctl/pkg/vault"
)

var showCopy bool

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

// showCmd prints the current code for one credential
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Prints the current code for a credential",
	Long: `Prints the current code for a credential. On a terminal the code is
grouped for reading and followed by the seconds it remains valid; when
piped, only the digits are written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, pass, err := openVault(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer pass.Destroy()

		e, ok := reg.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: '%s'", vault.ErrNotFound, args[0])
		}
		code, err := totp.Generate(e.Params(), now())
		if err != nil {
			return err
		}

		if writerIsTerminal(cmd.OutOrStdout()) {
			style := color.New(color.FgGreen, color.Bold)
			if code.Remaining <= display.UrgentThreshold {
				style = color.New(color.FgRed, color.Bold)
			}
			printf(cmd, "%s  (%ds left)\n", style.Sprint(totp.FormatCode(code.Value)), code.Remaining)
		} else {
			printf(cmd, "%s\n", code.Value)
		}

		if showCopy {
			if err := copyToClipboard(code.Value); err != nil {
				return failure.Wrapf(failure.Unknown, "failed to copy to clipboard: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard")
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVarP(&showCopy, "copy", "c", false, "Also copy the code to the clipboard")
}
