package passphrase

import (
	"context"
	"errors"
	"testing"

	"github.com/forest6511/totpctl/internal/keystore"
	"github.com/forest6511/totpctl/internal/prompt"
	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/failure"
)

const strong = "violet-tundra-marmalade-9-orbit"

func TestObtainFromKeystore(t *testing.T) {
	store := keystore.NewMemStore()
	if err := store.SetSecret(keystore.DefaultService, keystore.MasterAccount, []byte("stored")); err != nil {
		t.Fatal(err)
	}
	ask := prompt.NewScripted()

	p, err := New(store, ask).Obtain(context.Background())
	if err != nil {
		t.Fatalf("Obtain() error = %v", err)
	}
	defer p.Destroy()

	if string(p.Bytes()) != "stored" {
		t.Errorf("Obtain() = %q, want %q", p.Bytes(), "stored")
	}
	if len(ask.Asked) != 0 {
		t.Errorf("prompted %v when a passphrase was stored", ask.Asked)
	}
}

func TestObtainFirstRun(t *testing.T) {
	store := keystore.NewMemStore()
	ask := prompt.NewScripted(strong, strong)

	p, err := New(store, ask).Obtain(context.Background())
	if err != nil {
		t.Fatalf("Obtain() error = %v", err)
	}
	defer p.Destroy()

	if string(p.Bytes()) != strong {
		t.Errorf("Obtain() = %q", p.Bytes())
	}
	stored, err := store.GetSecret(keystore.DefaultService, keystore.MasterAccount)
	if err != nil {
		t.Fatalf("passphrase not stored: %v", err)
	}
	if string(stored) != strong {
		t.Errorf("stored = %q", stored)
	}
	if len(ask.Notices) == 0 {
		t.Error("no setup notice shown")
	}
}

func TestObtainRetriesMismatch(t *testing.T) {
	store := keystore.NewMemStore()
	ask := prompt.NewScripted(strong, "typo", strong, strong)

	p, err := New(store, ask).Obtain(context.Background())
	if err != nil {
		t.Fatalf("Obtain() error = %v", err)
	}
	defer p.Destroy()

	if len(ask.Asked) != 4 {
		t.Errorf("asked %d times, want 4", len(ask.Asked))
	}
}

func TestObtainMismatchExhausted(t *testing.T) {
	store := keystore.NewMemStore()
	ask := prompt.NewScripted("a1", "b1", "a2", "b2", "a3", "b3", "never", "asked")

	_, err := New(store, ask).Obtain(context.Background())
	if !errors.Is(err, ErrPassphraseMismatch) {
		t.Fatalf("Obtain() error = %v, want %v", err, ErrPassphraseMismatch)
	}
	if failure.KindOf(err) != failure.Input {
		t.Errorf("KindOf() = %v, want %v", failure.KindOf(err), failure.Input)
	}
	if len(ask.Asked) != 2*DefaultAttempts {
		t.Errorf("asked %d times, want %d", len(ask.Asked), 2*DefaultAttempts)
	}
	if store.Len() != 0 {
		t.Error("a passphrase was stored after mismatches")
	}
}

func TestObtainEmpty(t *testing.T) {
	store := keystore.NewMemStore()
	ask := prompt.NewScripted("")

	_, err := New(store, ask).Obtain(context.Background())
	if !errors.Is(err, crypto.ErrEmptyPassphrase) {
		t.Fatalf("Obtain() error = %v, want %v", err, crypto.ErrEmptyPassphrase)
	}
	if store.Len() != 0 {
		t.Error("an empty passphrase was stored")
	}
}

func TestObtainWeakWarns(t *testing.T) {
	ask := prompt.NewScripted("password", "password")

	p, err := New(keystore.NewMemStore(), ask).Obtain(context.Background())
	if err != nil {
		t.Fatalf("Obtain() error = %v", err)
	}
	defer p.Destroy()

	// setup notice plus weak warning
	if len(ask.Notices) != 2 {
		t.Errorf("Notices = %v, want setup notice and weak warning", ask.Notices)
	}
}

type failingStore struct{ keystore.Store }

func (failingStore) GetSecret(string, string) ([]byte, error) {
	return nil, errors.New("dbus: connection refused")
}

func TestObtainStoreUnavailable(t *testing.T) {
	_, err := New(failingStore{keystore.NewMemStore()}, prompt.NewScripted()).Obtain(context.Background())
	if failure.KindOf(err) != failure.CredentialStore {
		t.Errorf("KindOf() = %v, want %v (err = %v)", failure.KindOf(err), failure.CredentialStore, err)
	}
}

func TestLookupForgetReplace(t *testing.T) {
	store := keystore.NewMemStore()
	prov := New(store, prompt.NewScripted(), WithService("custom"))

	if _, err := prov.Lookup(); !errors.Is(err, ErrNotStored) {
		t.Fatalf("Lookup() error = %v, want %v", err, ErrNotStored)
	}

	pass, err := crypto.NewPassphrase([]byte("replacement"))
	if err != nil {
		t.Fatal(err)
	}
	defer pass.Destroy()
	if err := prov.Replace(pass); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if _, err := store.GetSecret("custom", keystore.MasterAccount); err != nil {
		t.Errorf("Replace() did not use the configured service: %v", err)
	}

	got, err := prov.Lookup()
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	defer got.Destroy()
	if !got.Equal(pass) {
		t.Error("Lookup() returned a different passphrase")
	}

	if err := prov.Forget(); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if err := prov.Forget(); err != nil {
		t.Errorf("second Forget() error = %v", err)
	}
	if _, err := prov.Lookup(); !errors.Is(err, ErrNotStored) {
		t.Errorf("Lookup() after Forget error = %v, want %v", err, ErrNotStored)
	}
}

func TestAskDoesNotStore(t *testing.T) {
	store := keystore.NewMemStore()
	ask := prompt.NewScripted("typed")

	p, err := New(store, ask).Ask("Master passphrase")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	defer p.Destroy()

	if string(p.Bytes()) != "typed" {
		t.Errorf("Ask() = %q", p.Bytes())
	}
	if len(ask.Asked) != 1 || ask.Asked[0] != "Master passphrase" {
		t.Errorf("Asked = %v", ask.Asked)
	}
	if store.Len() != 0 {
		t.Error("Ask stored the passphrase")
	}
}
