//go:build !darwin

package keystore

import (
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/forest6511/totpctl/pkg/failure"
)

// System is the Secret Service (Linux, BSD) or Windows Credential Manager.
type System struct{}

var _ Store = System{}

// New returns the platform credential store.
func New() Store {
	return System{}
}

// GetSecret reads an item.
func (System) GetSecret(service, account string) ([]byte, error) {
	v, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, failure.Wrapf(failure.CredentialStore, "keystore: read %s/%s: %w", service, account, err)
	}
	return []byte(v), nil
}

// SetSecret creates or replaces an item.
func (System) SetSecret(service, account string, secret []byte) error {
	if err := keyring.Set(service, account, string(secret)); err != nil {
		return failure.Wrapf(failure.CredentialStore, "keystore: write %s/%s: %w", service, account, err)
	}
	return nil
}

// DeleteSecret removes an item.
func (System) DeleteSecret(service, account string) error {
	err := keyring.Delete(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return failure.Wrapf(failure.CredentialStore, "keystore: delete %s/%s: %w", service, account, err)
	}
	return nil
}
