// Package vault persists the TOTP credential registry.
//
// FileStore keeps the whole registry in one file: a JSON envelope holding a
// random salt, a random nonce and the AES-256-GCM ciphertext of the entries.
// Every save rewrites the file wholesale with a fresh salt and nonce through a
// temporary file and a rename, so a crash never leaves a half-written vault.
// KeyringStore keeps entries directly in the platform credential store instead.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/failure"
)

// Repository loads and saves a registry.
type Repository interface {
	// Load returns the stored registry; a repository that holds nothing yet
	// returns an empty registry.
	Load(p *crypto.Passphrase) (*Registry, error)
	// Save replaces the stored registry with r.
	Save(r *Registry, p *crypto.Passphrase) error
	// Location describes where entries are kept, for messages.
	Location() string
	// Encrypted reports whether Load and Save need a passphrase.
	Encrypted() bool
}

// blob is the on-disk envelope. []byte fields are base64 encoded by encoding/json.
type blob struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// payload is the decrypted document.
type payload struct {
	Entries []Entry `json:"entries"`
}

// FileStore is a Repository backed by a single encrypted file.
type FileStore struct {
	path string
}

var _ Repository = (*FileStore)(nil)

// NewFileStore returns a store for the vault file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the vault file path.
func (s *FileStore) Path() string {
	return s.path
}

// Location returns the vault file path.
func (s *FileStore) Location() string {
	return s.path
}

// Encrypted always reports true.
func (s *FileStore) Encrypted() bool {
	return true
}

// Exists reports whether the vault file is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and decrypts the vault.
//
// A missing file yields an empty registry without deriving a key. An envelope
// that cannot be parsed and a ciphertext that fails authentication both return
// ErrDecryptionFailed; a payload that decrypts but does not decode returns
// ErrVaultCorrupt.
func (s *FileStore) Load(p *crypto.Passphrase) (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", s.path).Msg("vault file not found, starting empty")
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrIO, s.path, err)
	}
	s.checkAndWarnPermissions()

	if p.Bytes() == nil {
		return nil, ErrPassphraseMissing
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		log.Debug().Err(err).Msg("vault envelope is not valid JSON")
		return nil, ErrDecryptionFailed
	}
	if len(b.Salt) != crypto.SaltLength || len(b.Nonce) != crypto.NonceLength {
		log.Debug().Int("salt_len", len(b.Salt)).Int("nonce_len", len(b.Nonce)).Msg("vault envelope has invalid parameters")
		return nil, ErrDecryptionFailed
	}

	key, err := crypto.DeriveKey(p.Bytes(), b.Salt)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureWipe(key)

	plaintext, err := crypto.Decrypt(key, b.Nonce, b.Ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer crypto.SecureWipe(plaintext)

	r, err := decodePayload(plaintext)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", s.path).Int("entries", r.Len()).Msg("vault loaded")
	return r, nil
}

// Save encrypts r under p with a fresh salt and nonce and atomically replaces
// the vault file.
func (s *FileStore) Save(r *Registry, p *crypto.Passphrase) error {
	if p.Bytes() == nil {
		return ErrPassphraseMissing
	}

	plaintext, err := encodePayload(r)
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(plaintext)

	salt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	nonce, err := crypto.NewNonce()
	if err != nil {
		return err
	}
	key, err := crypto.DeriveKey(p.Bytes(), salt)
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(key)

	ciphertext, err := crypto.Encrypt(key, nonce, plaintext)
	if err != nil {
		return err
	}

	data, err := json.Marshal(blob{Salt: salt, Nonce: nonce, Ciphertext: ciphertext})
	if err != nil {
		return failure.Wrapf(failure.Storage, "vault: encode envelope: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), DirMode); err != nil {
		return fmt.Errorf("%w: create vault directory: %v", ErrIO, err)
	}
	if err := s.checkDiskSpaceForWrite(len(data)); err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}
	log.Debug().Str("path", s.path).Int("entries", r.Len()).Msg("vault saved")
	return nil
}

// writeFileAtomic writes data to a sibling temp file, syncs it and renames it
// over path. The temp file is removed on any failure.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FileMode)
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write temp file: %v", ErrIO, err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: sync temp file: %v", ErrIO, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", ErrIO, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: replace vault file: %v", ErrIO, err)
	}
	syncDir(dir)
	return nil
}

func encodePayload(r *Registry) ([]byte, error) {
	entries := []Entry{}
	if r != nil {
		entries = r.Entries()
	}
	data, err := json.Marshal(payload{Entries: entries})
	if err != nil {
		return nil, failure.Wrapf(failure.Schema, "vault: encode entries: %w", err)
	}
	return data, nil
}

func decodePayload(data []byte) (*Registry, error) {
	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultCorrupt, err)
	}
	r, err := registryFromEntries(pl.Entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultCorrupt, err)
	}
	return r, nil
}

// checkDiskSpaceForWrite verifies sufficient disk space before a save.
func (s *FileStore) checkDiskSpaceForWrite(dataSize int) error {
	info, err := CheckDiskSpace(filepath.Dir(s.path))
	if err != nil {
		log.Warn().Err(err).Msg("failed to check disk space")
		return nil
	}

	required := uint64(MinDiskSpaceBytes)
	if uint64(dataSize*2) > required {
		required = uint64(dataSize * 2)
	}
	if info.Available < required {
		return fmt.Errorf("%w: only %d KB available, need at least %d KB",
			ErrInsufficientDisk, info.Available/1024, required/1024)
	}
	if info.UsedPct >= DiskWarningPercent {
		log.Warn().Int("used_pct", info.UsedPct).Msg("disk is nearly full, consider freeing space")
	}
	return nil
}

// DiskSpaceInfo contains disk usage information
type DiskSpaceInfo struct {
	Total     uint64 // Total disk space in bytes
	Free      uint64 // Free disk space in bytes
	Available uint64 // Available to non-root users
	UsedPct   int    // Percentage of disk used
}
