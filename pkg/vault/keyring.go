package vault

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/forest6511/totpctl/internal/keystore"
	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/failure"
)

const (
	keyringIndexAccount = "_index"
	keyringEntryPrefix  = "entry:"
)

// KeyringStore is a Repository that keeps each entry as its own item in the
// platform credential store, plus an index item listing the names. Entries
// are protected by the operating system rather than by the master passphrase,
// so Load and Save ignore the passphrase argument.
type KeyringStore struct {
	store   keystore.Store
	service string
}

var _ Repository = (*KeyringStore)(nil)

// NewKeyringStore returns a store that keeps entries under service.
func NewKeyringStore(store keystore.Store, service string) *KeyringStore {
	return &KeyringStore{store: store, service: service + ".entries"}
}

// Location names the credential store service.
func (k *KeyringStore) Location() string {
	return "keyring:" + k.service
}

// Encrypted reports false: the platform store protects the entries.
func (k *KeyringStore) Encrypted() bool {
	return false
}

func (k *KeyringStore) index() ([]string, error) {
	data, err := k.store.GetSecret(k.service, keyringIndexAccount)
	if errors.Is(err, keystore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("%w: keyring index: %v", ErrVaultCorrupt, err)
	}
	return names, nil
}

// Load reads the index and every entry it names.
func (k *KeyringStore) Load(_ *crypto.Passphrase) (*Registry, error) {
	names, err := k.index()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		data, err := k.store.GetSecret(k.service, keyringEntryPrefix+name)
		if errors.Is(err, keystore.ErrNotFound) {
			return nil, fmt.Errorf("%w: keyring entry %q is missing", ErrVaultCorrupt, name)
		}
		if err != nil {
			return nil, err
		}
		var e Entry
		err = json.Unmarshal(data, &e)
		crypto.SecureWipe(data)
		if err != nil {
			return nil, fmt.Errorf("%w: keyring entry %q: %v", ErrVaultCorrupt, name, err)
		}
		entries = append(entries, e)
	}

	r, err := registryFromEntries(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultCorrupt, err)
	}
	log.Debug().Str("service", k.service).Int("entries", r.Len()).Msg("keyring loaded")
	return r, nil
}

// Save writes every entry, then the index, then removes items for names that
// are no longer present.
func (k *KeyringStore) Save(r *Registry, _ *crypto.Passphrase) error {
	previous, err := k.index()
	if err != nil && !failure.Is(err, failure.Schema) {
		return err
	}

	for _, e := range r.Entries() {
		data, err := json.Marshal(e)
		if err != nil {
			return failure.Wrapf(failure.Schema, "vault: encode entry %q: %w", e.Name, err)
		}
		err = k.store.SetSecret(k.service, keyringEntryPrefix+e.Name, data)
		crypto.SecureWipe(data)
		if err != nil {
			return err
		}
	}

	names := r.Names()
	index, err := json.Marshal(names)
	if err != nil {
		return failure.Wrapf(failure.Schema, "vault: encode keyring index: %w", err)
	}
	if err := k.store.SetSecret(k.service, keyringIndexAccount, index); err != nil {
		return err
	}

	for _, stale := range lo.Without(previous, names...) {
		if err := k.store.DeleteSecret(k.service, keyringEntryPrefix+stale); err != nil && !errors.Is(err, keystore.ErrNotFound) {
			log.Warn().Err(err).Str("name", stale).Msg("failed to remove deleted entry from keyring")
		}
	}
	log.Debug().Str("service", k.service).Int("entries", r.Len()).Msg("keyring saved")
	return nil
}
