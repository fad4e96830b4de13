// Package main provides the totpctl CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"

	"github.com/forest6511/totpctl/pkg/failure"
	"github.com/forest6511/totpctl/pkg/vault"
)

// decryptionMessage is shown for both a wrong passphrase and a damaged file.
const decryptionMessage = "unable to open vault: wrong passphrase or corrupted vault file"

func main() {
	os.Exit(run())
}

func run() int {
	defer memguard.Purge()

	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err)
		return exitCode(err)
	}
	return 0
}

// reportError prints one diagnostic line.
func reportError(w io.Writer, err error) {
	if errors.Is(err, vault.ErrDecryptionFailed) {
		fmt.Fprintf(w, "error: %s\n", decryptionMessage)
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

// exitCode maps an error to the process exit status by kind.
func exitCode(err error) int {
	return failure.KindOf(err).ExitCode()
}
