// Package crypto provides cryptographic primitives for totpctl.
//
// This package implements AES-256-GCM authenticated encryption and PBKDF2-SHA256
// key derivation for the vault file.
//
// # Security Features
//
//   - AES-256-GCM authenticated encryption with caller-supplied nonces
//   - PBKDF2-HMAC-SHA256 key derivation (100,000 iterations)
//   - Cryptographically secure random salt and nonce generation
//   - Secure memory wiping for sensitive data
//
// # Example Usage
//
//	salt, _ := crypto.NewSalt()
//	key, err := crypto.DeriveKey([]byte("passphrase"), salt)
//	defer crypto.SecureWipe(key)
//
//	nonce, _ := crypto.NewNonce()
//	ciphertext, err := crypto.Encrypt(key, nonce, plaintext)
//	plaintext, err := crypto.Decrypt(key, nonce, ciphertext)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"runtime"

	"golang.org/x/crypto/pbkdf2"

	"github.com/forest6511/totpctl/pkg/failure"
)

// Key derivation and AEAD parameters.
const (
	// PBKDF2Iterations is the fixed number of PBKDF2 rounds.
	PBKDF2Iterations = 100_000

	// SaltLength is the length of vault salts in bytes (128 bits).
	SaltLength = 16

	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12
)

// Sentinel errors returned by crypto functions.
var (
	// ErrEmptyPassphrase indicates key derivation was asked to stretch nothing.
	ErrEmptyPassphrase = failure.New(failure.Input, "crypto: passphrase must not be empty")

	// ErrInvalidSalt indicates the salt is not SaltLength bytes.
	ErrInvalidSalt = failure.New(failure.Crypto, "crypto: invalid salt length, must be 16 bytes")

	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = failure.New(failure.Crypto, "crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = failure.New(failure.Crypto, "crypto: invalid nonce length, must be 12 bytes")

	// ErrDecryptionFailed indicates decryption or authentication tag verification failed.
	// Wrong keys and corrupted ciphertexts are deliberately indistinguishable.
	ErrDecryptionFailed = failure.New(failure.Crypto, "crypto: decryption failed, authentication tag verification failed")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = failure.New(failure.Crypto, "crypto: ciphertext too short")
)

// DeriveKey derives a 256-bit encryption key from a passphrase using
// PBKDF2-HMAC-SHA256 with PBKDF2Iterations rounds.
//
// The result is deterministic for a given (passphrase, salt) pair. Callers own
// the returned key and should SecureWipe it when done.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if len(salt) != SaltLength {
		return nil, ErrInvalidSalt
	}
	return pbkdf2.Key(passphrase, salt, PBKDF2Iterations, KeyLength, sha256.New), nil
}

// NewSalt returns SaltLength bytes from crypto/rand.
func NewSalt() ([]byte, error) {
	return randomBytes(SaltLength)
}

// NewNonce returns NonceLength bytes from crypto/rand.
func NewNonce() ([]byte, error) {
	return randomBytes(NonceLength)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, failure.Wrapf(failure.Crypto, "crypto: failed to read random bytes: %w", err)
	}
	return b, nil
}

// Encrypt encrypts plaintext using AES-256-GCM authenticated encryption.
//
// The nonce must be NonceLength bytes and must never be reused with the same
// key. The authentication tag is appended to the returned ciphertext.
func Encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM authenticated encryption.
//
// The authentication tag is verified before any plaintext is returned. On
// failure the plaintext is nil and the error is ErrDecryptionFailed, whether
// the key was wrong or the ciphertext was modified.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key, nonce)
	if err != nil {
		return nil, err
	}

	// GCM tag is 16 bytes
	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key, nonce []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, failure.Wrapf(failure.Crypto, "crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, failure.Wrapf(failure.Crypto, "crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}
