package crypto

import (
	"github.com/awnumar/memguard"
	"golang.org/x/text/unicode/norm"
)

// Passphrase holds master passphrase bytes in guarded memory.
//
// A Passphrase lives for one load or save operation. Destroy wipes and
// releases the backing memory; it is safe to call more than once.
type Passphrase struct {
	buf *memguard.LockedBuffer
}

// NewPassphrase moves b into guarded memory. The input is NFC normalized so
// that composed and decomposed spellings derive the same key, and the caller's
// slice is wiped before returning.
func NewPassphrase(b []byte) (*Passphrase, error) {
	if len(b) == 0 {
		return nil, ErrEmptyPassphrase
	}
	normalized := norm.NFC.Bytes(b)
	p := &Passphrase{buf: memguard.NewBufferFromBytes(normalized)}
	SecureWipe(b)
	return p, nil
}

// Bytes returns the passphrase. The slice is only valid until Destroy.
func (p *Passphrase) Bytes() []byte {
	if p == nil || p.buf == nil || !p.buf.IsAlive() {
		return nil
	}
	return p.buf.Bytes()
}

// Equal reports whether two passphrases hold the same bytes, in constant time.
func (p *Passphrase) Equal(other *Passphrase) bool {
	a, b := p.Bytes(), other.Bytes()
	if a == nil || b == nil {
		return false
	}
	return p.buf.EqualTo(b)
}

// Destroy wipes the passphrase.
func (p *Passphrase) Destroy() {
	if p == nil || p.buf == nil {
		return
	}
	p.buf.Destroy()
}
