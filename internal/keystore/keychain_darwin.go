//go:build darwin

package keystore

import (
	"errors"

	"github.com/keybase/go-keychain"

	"github.com/forest6511/totpctl/pkg/failure"
)

const keychainLabel = "totpctl"

// System is the macOS Keychain.
type System struct{}

var _ Store = System{}

// New returns the platform credential store.
func New() Store {
	return System{}
}

// GetSecret reads a generic password item.
func (System) GetSecret(service, account string) ([]byte, error) {
	data, err := keychain.GetGenericPassword(service, account, "", "")
	if err != nil {
		return nil, failure.Wrapf(failure.CredentialStore, "keystore: read %s/%s: %w", service, account, err)
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return data, nil
}

// SetSecret stores a device-local, non-synchronized item readable while the
// device is unlocked, updating it if it already exists.
func (System) SetSecret(service, account string, secret []byte) error {
	item := keychain.NewGenericPassword(service, account, keychainLabel, secret, "")
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlockedThisDeviceOnly)

	err := keychain.AddItem(item)
	if errors.Is(err, keychain.ErrorDuplicateItem) {
		query := keychain.NewGenericPassword(service, account, "", nil, "")
		update := keychain.NewItem()
		update.SetData(secret)
		err = keychain.UpdateItem(query, update)
	}
	if err != nil {
		return failure.Wrapf(failure.CredentialStore, "keystore: write %s/%s: %w", service, account, err)
	}
	return nil
}

// DeleteSecret removes the item.
func (System) DeleteSecret(service, account string) error {
	query := keychain.NewGenericPassword(service, account, "", nil, "")
	err := keychain.DeleteItem(query)
	if errors.Is(err, keychain.ErrorItemNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return failure.Wrapf(failure.CredentialStore, "keystore: delete %s/%s: %w", service, account, err)
	}
	return nil
}
