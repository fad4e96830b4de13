package vault

import (
	"errors"
	"testing"

	"github.com/forest6511/totpctl/internal/keystore"
)

func TestKeyringStoreRoundTrip(t *testing.T) {
	mem := keystore.NewMemStore()
	s := NewKeyringStore(mem, keystore.DefaultService)

	empty, err := s.Load(nil)
	if err != nil {
		t.Fatalf("Load() on empty keyring error = %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("Len() = %d, want 0", empty.Len())
	}

	want := sampleRegistry(t)
	if err := s.Save(want, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// one item per entry plus the index
	if mem.Len() != want.Len()+1 {
		t.Errorf("keyring holds %d items, want %d", mem.Len(), want.Len()+1)
	}

	got, err := s.Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Load() = %v, want %v", got.Names(), want.Names())
	}
	if s.Encrypted() {
		t.Error("Encrypted() = true for keyring store")
	}
}

func TestKeyringStoreRemovesDeleted(t *testing.T) {
	mem := keystore.NewMemStore()
	s := NewKeyringStore(mem, keystore.DefaultService)

	r := sampleRegistry(t)
	if err := s.Save(r, nil); err != nil {
		t.Fatal(err)
	}
	r.Delete("github")
	if err := s.Save(r, nil); err != nil {
		t.Fatal(err)
	}

	if mem.Len() != 2 {
		t.Errorf("keyring holds %d items after delete, want 2", mem.Len())
	}
	got, err := s.Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.Get("github"); ok {
		t.Error("deleted entry still loads")
	}
}

func TestKeyringStoreMissingEntry(t *testing.T) {
	mem := keystore.NewMemStore()
	s := NewKeyringStore(mem, keystore.DefaultService)
	if err := s.Save(sampleRegistry(t), nil); err != nil {
		t.Fatal(err)
	}
	if err := mem.DeleteSecret(s.service, keyringEntryPrefix+"github"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(nil); !errors.Is(err, ErrVaultCorrupt) {
		t.Errorf("Load() error = %v, want %v", err, ErrVaultCorrupt)
	}
}
