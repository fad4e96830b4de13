// Package keystore reads and writes small secrets in the platform credential
// store: the macOS Keychain on darwin, the Secret Service on Linux and the
// Windows Credential Manager on Windows.
package keystore

import (
	"os"
	"sync"

	"github.com/forest6511/totpctl/pkg/failure"
)

// Default coordinates of the master passphrase item.
const (
	DefaultService = "totpctl"
	MasterAccount  = "master"

	// PassphraseEnv supplies the master passphrase non-interactively. It is
	// read once and removed from the environment.
	PassphraseEnv = "TOTPCTL_PASSPHRASE"
)

// Errors
var (
	ErrNotFound    = failure.New(failure.NotFound, "keystore: item not found")
	ErrUnavailable = failure.New(failure.CredentialStore, "keystore: credential store unavailable")
)

// Store is a service/account keyed secret store.
type Store interface {
	GetSecret(service, account string) ([]byte, error)
	SetSecret(service, account string, secret []byte) error
	DeleteSecret(service, account string) error
}

// MemStore is an in-process Store used by tests and by the env overlay.
type MemStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{items: make(map[string][]byte)}
}

func memKey(service, account string) string {
	return service + "\x00" + account
}

// GetSecret returns a copy of the stored secret.
func (m *MemStore) GetSecret(service, account string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[memKey(service, account)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// SetSecret stores a copy of secret.
func (m *MemStore) SetSecret(service, account string, secret []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[memKey(service, account)] = append([]byte(nil), secret...)
	return nil
}

// DeleteSecret removes the item; a missing item yields ErrNotFound.
func (m *MemStore) DeleteSecret(service, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(service, account)
	if _, ok := m.items[k]; !ok {
		return ErrNotFound
	}
	delete(m.items, k)
	return nil
}

// Len returns the number of stored items.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// EnvStore overlays a passphrase taken from an environment variable on top
// of another Store. The variable is consumed when the overlay is built; the
// value answers reads of the master account and is never written through.
type EnvStore struct {
	Store
	service string
	value   []byte
}

// NewEnvStore wraps base. When PassphraseEnv is set its value is captured and
// the variable is unset.
func NewEnvStore(base Store, service string) *EnvStore {
	s := &EnvStore{Store: base, service: service}
	if v, ok := os.LookupEnv(PassphraseEnv); ok {
		_ = os.Unsetenv(PassphraseEnv)
		if v != "" {
			s.value = []byte(v)
		}
	}
	return s
}

// GetSecret answers the master account from the environment when present.
func (s *EnvStore) GetSecret(service, account string) ([]byte, error) {
	if s.value != nil && service == s.service && account == MasterAccount {
		return append([]byte(nil), s.value...), nil
	}
	return s.Store.GetSecret(service, account)
}

// FromEnv reports whether the master passphrase came from the environment.
func (s *EnvStore) FromEnv() bool {
	return s.value != nil
}
