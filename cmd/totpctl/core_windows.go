//go:build windows

package main

import "os"

// signalsToNotify returns the signals that stop the live view.
// On Windows, only os.Interrupt is available (Ctrl+C)
func signalsToNotify() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// disableCoreDumps is a no-op on Windows.
// Windows Error Reporting does not use RLIMIT_CORE.
func disableCoreDumps() error {
	return nil
}
