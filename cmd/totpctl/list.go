package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forest6511/totpctl/internal/cli"
)

// listCmd lists credential names
var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "Lists stored credential names",
	Long: `Lists stored credential names. An optional pattern filters the list:
plain text matches names containing it, and *, ? and [...] glob patterns
match whole names. Matching is case-insensitive.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, pass, err := openVault(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer pass.Destroy()

		var pattern string
		if len(args) > 0 {
			pattern = args[0]
		}
		names, err := cli.FilterNames(pattern, reg.Names())
		if err != nil {
			return err
		}

		if len(names) == 0 {
			if reg.Len() == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No credentials stored. Add one with: totpctl add <name> [key]")
			}
			return nil
		}

		labels := color.New(color.Faint)
		for _, name := range names {
			e, _ := reg.Get(name)
			if label := e.Label(); label != "" {
				printf(cmd, "%s  %s\n", name, labels.Sprint(label))
				continue
			}
			printf(cmd, "%s\n", name)
		}
		return nil
	},
}
