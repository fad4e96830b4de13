package main

import (
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/forest6511/totpctl/pkg/vault"
)

// registerCompletionFunctions attaches name completion to commands that take
// credential names.
func registerCompletionFunctions() {
	showCmd.ValidArgsFunction = completeFirstName
	deleteCmd.ValidArgsFunction = completeNames
}

// completeNames offers stored credential names (opt-in only).
// Returns an empty list if:
// - Dynamic completion is disabled (default)
// - The vault cannot be opened without prompting
func completeNames(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if !isDynamicCompletionEnabled() {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	names, err := namesForCompletion(toComplete)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return lo.Without(names, args...), cobra.ShellCompDirectiveNoFileComp
}

func completeFirstName(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeNames(cmd, args, toComplete)
}

// namesForCompletion returns the names starting with prefix, using only the
// stored passphrase. A missing passphrase or vault yields no names.
func namesForCompletion(prefix string) ([]string, error) {
	if err := setup(); err != nil {
		return nil, err
	}

	var reg *vault.Registry
	if repo.Encrypted() {
		fs, ok := repo.(*vault.FileStore)
		if ok && !fs.Exists() {
			return nil, nil
		}
		pass, err := provider.Lookup()
		if err != nil {
			return nil, nil
		}
		defer pass.Destroy()
		if reg, err = repo.Load(pass); err != nil {
			return nil, err
		}
	} else {
		var err error
		if reg, err = repo.Load(nil); err != nil {
			return nil, err
		}
	}

	lower := strings.ToLower(prefix)
	return lo.Filter(reg.Names(), func(name string, _ int) bool {
		return strings.HasPrefix(strings.ToLower(name), lower)
	}), nil
}
