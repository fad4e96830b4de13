// Package failure defines the closed error taxonomy shared by totpctl packages.
//
// Every error that crosses a package boundary carries exactly one Kind. Packages
// declare sentinel errors with New and wrap foreign causes with Wrap, so callers
// can use errors.Is for specific conditions and KindOf for the broad category.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the categories the CLI reports on.
type Kind int

const (
	// Unknown is returned by KindOf for errors outside the taxonomy.
	Unknown Kind = iota
	// Input covers invalid user input: empty passphrase, bad secret encoding, duplicate name.
	Input
	// Crypto covers key derivation and authenticated decryption failures.
	Crypto
	// Storage covers file system failures and missing directories.
	Storage
	// Schema covers a payload that decrypted but could not be decoded.
	Schema
	// NotFound covers operations on an absent credential name.
	NotFound
	// CredentialStore covers an unavailable or denied platform secure store.
	CredentialStore
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case Input:
		return "input"
	case Crypto:
		return "crypto"
	case Storage:
		return "storage"
	case Schema:
		return "schema"
	case NotFound:
		return "not_found"
	case CredentialStore:
		return "credential_store"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit status for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case Input:
		return 2
	case Crypto:
		return 3
	case Storage:
		return 4
	case Schema:
		return 5
	case NotFound:
		return 6
	case CredentialStore:
		return 7
	default:
		return 1
	}
}

// Error is an error tagged with a Kind.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

// New returns a sentinel error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, err: err}
}

// Wrapf tags a formatted error with kind; %w verbs are honored.
func Wrapf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the kind of the outermost tagged error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
