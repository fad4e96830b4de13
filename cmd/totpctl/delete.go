package main

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/forest6511/totpctl/internal/cli"
)

var deleteYes bool

// deleteCmd removes credentials
var deleteCmd = &cobra.Command{
	Use:     "del <name>...",
	Aliases: []string{"delete", "rm"},
	Short:   "Deletes credentials",
	Long: `Deletes one or more credentials by exact name or glob pattern.
When a pattern matches more than one credential you are asked to confirm
unless --yes is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, pass, err := openVault(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer pass.Destroy()

		targets, err := cli.ExpandPatterns(args, reg.Names())
		if err != nil {
			return err
		}

		usesGlob := lo.SomeBy(args, cli.HasGlob)
		if usesGlob && len(targets) > 1 && !deleteYes {
			answer, err := prompter.Line(fmt.Sprintf("Delete %d credentials (%s)? [y/N]", len(targets), strings.Join(targets, ", ")))
			if err != nil {
				return err
			}
			if !strings.EqualFold(strings.TrimSpace(answer), "y") && !strings.EqualFold(strings.TrimSpace(answer), "yes") {
				fmt.Fprintln(cmd.ErrOrStderr(), "Aborted")
				return nil
			}
		}

		for _, name := range targets {
			reg.Delete(name)
		}
		if err := saveVault(reg, pass); err != nil {
			return err
		}

		for _, name := range targets {
			printf(cmd, "Credential '%s' deleted\n", name)
		}
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}
