package vault

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/failure"
	"github.com/forest6511/totpctl/pkg/totp"
)

func mustPassphrase(t *testing.T, s string) *crypto.Passphrase {
	t.Helper()
	p, err := crypto.NewPassphrase([]byte(s))
	if err != nil {
		t.Fatalf("NewPassphrase() error = %v", err)
	}
	t.Cleanup(p.Destroy)
	return p
}

func sampleRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	github := NewEntry("github", []byte("Hello!\xde\xad\xbe\xef"))
	github.Issuer = "GitHub"
	github.Account = "alice"
	aws := NewEntry("aws-prod", []byte("12345678901234567890123456789012"))
	aws.Algorithm = totp.SHA256
	aws.Digits = 8
	aws.Period = 60
	for _, e := range []Entry{github, aws} {
		if err := r.Add(e); err != nil {
			t.Fatalf("Add(%q) error = %v", e.Name, err)
		}
	}
	return r
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	s := NewFileStore(path)
	p := mustPassphrase(t, "correct horse battery staple")
	want := sampleRegistry(t)

	if err := s.Save(want, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Load() = %v, want %v", got.Names(), want.Names())
	}
}

func TestFileStoreRoundTripEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), FileName))
	p := mustPassphrase(t, "pw")

	if err := s.Save(NewRegistry(), p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), FileName))

	// No passphrase is needed when nothing has been stored yet.
	r, err := s.Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if s.Exists() {
		t.Error("Exists() = true before any save")
	}
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), FileName))
	if err := s.Save(sampleRegistry(t), mustPassphrase(t, "right")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	r, err := s.Load(mustPassphrase(t, "wrong"))
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("Load() error = %v, want %v", err, ErrDecryptionFailed)
	}
	if r != nil {
		t.Error("Load() returned a registry on failure")
	}
	if failure.KindOf(err) != failure.Crypto {
		t.Errorf("KindOf() = %v, want %v", failure.KindOf(err), failure.Crypto)
	}
}

func TestFileStoreTamper(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s := NewFileStore(path)
	p := mustPassphrase(t, "pw")
	if err := s.Save(sampleRegistry(t), p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		t.Fatal(err)
	}

	fields := map[string]*[]byte{
		"salt":       &b.Salt,
		"nonce":      &b.Nonce,
		"ciphertext": &b.Ciphertext,
	}
	for name, field := range fields {
		t.Run(name, func(t *testing.T) {
			orig := append([]byte(nil), (*field)...)
			defer func() { *field = orig }()
			(*field)[0] ^= 0x01

			tampered, err := json.Marshal(b)
			if err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(path, tampered, FileMode); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Load(p); !errors.Is(err, ErrDecryptionFailed) {
				t.Errorf("Load() error = %v, want %v", err, ErrDecryptionFailed)
			}
		})
	}
}

func TestFileStoreMalformedEnvelope(t *testing.T) {
	tests := map[string]string{
		"not json":    "this is not a vault",
		"short salt":  `{"salt":"AAAA","nonce":"AAAAAAAAAAAAAAAA","ciphertext":"AAAA"}`,
		"short nonce": `{"salt":"AAAAAAAAAAAAAAAAAAAAAA==","nonce":"AAAA","ciphertext":"AAAA"}`,
		"empty":       ``,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(content), FileMode); err != nil {
				t.Fatal(err)
			}
			if _, err := NewFileStore(path).Load(mustPassphrase(t, "pw")); !errors.Is(err, ErrDecryptionFailed) {
				t.Errorf("Load() error = %v, want %v", err, ErrDecryptionFailed)
			}
		})
	}
}

// writeRawVault encrypts plaintext exactly as Save would, without going
// through the registry encoder.
func writeRawVault(t *testing.T, path string, p *crypto.Passphrase, plaintext []byte) {
	t.Helper()
	salt, _ := crypto.NewSalt()
	nonce, _ := crypto.NewNonce()
	key, err := crypto.DeriveKey(p.Bytes(), salt)
	if err != nil {
		t.Fatal(err)
	}
	ct, err := crypto.Encrypt(key, nonce, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(blob{Salt: salt, Nonce: nonce, Ciphertext: ct})
	if err := os.WriteFile(path, data, FileMode); err != nil {
		t.Fatal(err)
	}
}

func TestFileStoreCorruptPayload(t *testing.T) {
	tests := map[string]string{
		"not json":       `not json at all`,
		"bad secret":     `{"entries":[{"name":"x","secret":"!!!","algorithm":"SHA1","digits":6,"period":30}]}`,
		"bad digits":     `{"entries":[{"name":"x","secret":"GEZDGNBV","algorithm":"SHA1","digits":4,"period":30}]}`,
		"duplicate name": `{"entries":[{"name":"x","secret":"GEZDGNBV","algorithm":"SHA1","digits":6,"period":30},{"name":"x","secret":"GEZDGNBV","algorithm":"SHA1","digits":6,"period":30}]}`,
	}
	for name, plaintext := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			p := mustPassphrase(t, "pw")
			writeRawVault(t, path, p, []byte(plaintext))

			_, err := NewFileStore(path).Load(p)
			if !errors.Is(err, ErrVaultCorrupt) {
				t.Fatalf("Load() error = %v, want %v", err, ErrVaultCorrupt)
			}
			if failure.KindOf(err) != failure.Schema {
				t.Errorf("KindOf() = %v, want %v", failure.KindOf(err), failure.Schema)
			}
		})
	}
}

func TestFileStoreFreshSaltAndNonce(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s := NewFileStore(path)
	p := mustPassphrase(t, "pw")
	r := sampleRegistry(t)

	read := func() blob {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var b blob
		if err := json.Unmarshal(data, &b); err != nil {
			t.Fatal(err)
		}
		return b
	}

	if err := s.Save(r, p); err != nil {
		t.Fatal(err)
	}
	first := read()
	if err := s.Save(r, p); err != nil {
		t.Fatal(err)
	}
	second := read()

	if string(first.Salt) == string(second.Salt) {
		t.Error("salt reused across saves")
	}
	if string(first.Nonce) == string(second.Nonce) {
		t.Error("nonce reused across saves")
	}
}

func TestFileStoreAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	s := NewFileStore(path)
	p := mustPassphrase(t, "pw")

	for i := 0; i < 3; i++ {
		if err := s.Save(sampleRegistry(t), p); err != nil {
			t.Fatalf("Save() #%d error = %v", i, err)
		}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", f.Name())
		}
	}
	if len(files) != 1 {
		t.Errorf("directory holds %d files, want 1", len(files))
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != FileMode {
			t.Errorf("vault file mode = %04o, want %04o", perm, FileMode)
		}
	}
}

func TestFileStoreSaveFailureLeavesVaultIntact(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	s := NewFileStore(path)
	p := mustPassphrase(t, "pw")
	want := sampleRegistry(t)
	if err := s.Save(want, p); err != nil {
		t.Fatal(err)
	}

	if err := os.Chmod(dir, 0500); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dir, DirMode)

	r := sampleRegistry(t)
	r.Delete("github")
	err := s.Save(r, p)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Save() into read-only dir error = %v, want %v", err, ErrIO)
	}

	got, err := s.Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Equal(want) {
		t.Error("failed save modified the stored vault")
	}
}

func TestFileStoreRequiresPassphrase(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), FileName))
	if err := s.Save(NewRegistry(), nil); !errors.Is(err, ErrPassphraseMissing) {
		t.Errorf("Save(nil) error = %v, want %v", err, ErrPassphraseMissing)
	}
}

// TestWorkScenario walks the add, reload, generate and delete cycle a user
// goes through on a fresh machine.
func TestWorkScenario(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), FileName))
	p := mustPassphrase(t, "pw")

	r, err := s.Load(p)
	if err != nil {
		t.Fatal(err)
	}
	secret, err := totp.DecodeSecret("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Add(NewEntry("work", secret)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(r, p); err != nil {
		t.Fatal(err)
	}

	r, err = s.Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Names(); len(got) != 1 || got[0] != "work" {
		t.Fatalf("Names() = %v, want [work]", got)
	}
	e, ok := r.Get("work")
	if !ok {
		t.Fatal("Get(work) not found")
	}
	code, err := totp.Generate(e.Params(), totp.SystemClock{}.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(code.Value) != 6 {
		t.Errorf("code %q has %d digits, want 6", code.Value, len(code.Value))
	}

	if _, ok := r.Delete("work"); !ok {
		t.Fatal("Delete(work) reported missing")
	}
	if err := s.Save(r, p); err != nil {
		t.Fatal(err)
	}
	r, err = s.Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after delete = %d, want 0", r.Len())
	}
}

func TestCheckDiskSpace(t *testing.T) {
	info, err := CheckDiskSpace(t.TempDir())
	if err != nil {
		t.Skipf("disk statistics unavailable: %v", err)
	}
	if info.Total == 0 {
		t.Error("Total = 0")
	}
	if info.UsedPct < 0 || info.UsedPct > 100 {
		t.Errorf("UsedPct = %d, want 0..100", info.UsedPct)
	}
}
