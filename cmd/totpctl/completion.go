package main

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCmd writes a shell completion script to stdout
var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Prints a shell completion script",
	Long: `Prints a completion script for bash, zsh, fish or powershell. Commands,
subcommands and flags complete everywhere; source the output from your shell
profile, for example:

   source <(totpctl completion bash)
   totpctl completion fish > ~/.config/fish/completions/totpctl.fish

Credential names after "show" and "del" are completed only when
TOTPCTL_COMPLETION_ENABLED=1 is set and the master passphrase is already in
the system keychain (or TOTPCTL_PASSPHRASE). Completion reads the vault but
never asks for a passphrase and never stores one.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, out := cmd.Root(), cmd.OutOrStdout()
		switch args[0] {
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		default:
			return root.GenBashCompletionV2(out, true)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	registerCompletionFunctions()
}

// isDynamicCompletionEnabled reports whether credential names may be offered.
// Without it, completion never opens the keychain or the vault.
func isDynamicCompletionEnabled() bool {
	return os.Getenv("TOTPCTL_COMPLETION_ENABLED") == "1"
}
