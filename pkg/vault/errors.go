package vault

import "github.com/forest6511/totpctl/pkg/failure"

// Constants
const (
	FileMode = 0600 // Owner read/write only
	DirMode  = 0700 // Owner read/write/execute only

	// FileName is the default vault file name inside the config directory.
	FileName = "vault.json"

	// MaxNameLength is the maximum credential name length in characters.
	MaxNameLength = 256

	// MinDiskSpaceBytes is the free space required before a save.
	MinDiskSpaceBytes = 1024 * 1024
	// DiskWarningPercent triggers a low-space warning on save.
	DiskWarningPercent = 95
)

// Errors
var (
	ErrDecryptionFailed  = failure.New(failure.Crypto, "vault: unable to open vault: wrong passphrase or corrupted vault file")
	ErrVaultCorrupt      = failure.New(failure.Schema, "vault: vault contents are corrupted")
	ErrIO                = failure.New(failure.Storage, "vault: i/o error")
	ErrInsufficientDisk  = failure.New(failure.Storage, "vault: insufficient disk space")
	ErrNotFound          = failure.New(failure.NotFound, "vault: credential not found")
	ErrDuplicateName     = failure.New(failure.Input, "vault: credential name already exists")
	ErrInvalidEntry      = failure.New(failure.Input, "vault: invalid credential")
	ErrNameEmpty         = failure.New(failure.Input, "vault: credential name must not be empty")
	ErrNameTooLong       = failure.New(failure.Input, "vault: credential name too long")
	ErrNameInvalid       = failure.New(failure.Input, "vault: credential name is invalid")
	ErrPassphraseMissing = failure.New(failure.Input, "vault: a passphrase is required")
)
