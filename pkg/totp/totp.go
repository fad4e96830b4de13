// Package totp derives time-based one-time passwords (RFC 6238).
//
// Generate is a pure function of its inputs: the caller supplies the shared
// secret, generation parameters and the instant, and receives the code plus the
// number of seconds left in the current time step. No counter state is kept
// between calls. Dynamic truncation (RFC 4226 §5.3) is delegated to
// github.com/pquerna/otp/hotp with the selected hash.
package totp

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"

	"github.com/forest6511/totpctl/pkg/failure"
)

// Generation defaults.
const (
	DefaultDigits = 6
	DefaultPeriod = 30
	MinDigits     = 6
	MaxDigits     = 8
)

// Algorithm names the keyed hash used for truncation.
type Algorithm string

// Supported algorithms.
const (
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"
)

// Errors returned by Generate and the secret codecs.
var (
	ErrEmptySecret      = failure.New(failure.Input, "totp: secret is empty")
	ErrInvalidSecret    = failure.New(failure.Input, "totp: secret is not valid base32")
	ErrInvalidAlgorithm = failure.New(failure.Input, "totp: unsupported algorithm")
	ErrInvalidDigits    = failure.New(failure.Input, "totp: digits must be between 6 and 8")
	ErrInvalidPeriod    = failure.New(failure.Input, "totp: period must be positive")
	ErrInvalidTime      = failure.New(failure.Input, "totp: time is before the unix epoch")
	ErrInvalidURI       = failure.New(failure.Input, "totp: invalid otpauth uri")
)

// ParseAlgorithm converts a case-insensitive name to an Algorithm.
// An empty name selects SHA1.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "", "SHA1":
		return SHA1, nil
	case "SHA256":
		return SHA256, nil
	case "SHA512":
		return SHA512, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAlgorithm, s)
	}
}

func (a Algorithm) otp() (otp.Algorithm, error) {
	switch a {
	case SHA1:
		return otp.AlgorithmSHA1, nil
	case SHA256:
		return otp.AlgorithmSHA256, nil
	case SHA512:
		return otp.AlgorithmSHA512, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, string(a))
	}
}

// Params are the inputs that, together with a time, determine a code.
type Params struct {
	Secret    []byte
	Algorithm Algorithm
	Digits    int
	Period    int
}

// Code is the result of one derivation.
type Code struct {
	Value     string
	Counter   uint64
	Remaining int // seconds left in the window, 1..Period
	Period    int
}

// Ratio returns the fraction of the window still remaining, in (0, 1].
func (c Code) Ratio() float64 {
	if c.Period <= 0 {
		return 0
	}
	return float64(c.Remaining) / float64(c.Period)
}

// Validate checks the parameters without generating a code.
func (p Params) Validate() error {
	if len(p.Secret) == 0 {
		return ErrEmptySecret
	}
	if _, err := p.Algorithm.otp(); err != nil {
		return err
	}
	if p.Digits < MinDigits || p.Digits > MaxDigits {
		return fmt.Errorf("%w: got %d", ErrInvalidDigits, p.Digits)
	}
	if p.Period <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPeriod, p.Period)
	}
	return nil
}

// Generate returns the code for now and the seconds left before it changes.
//
// counter = floor(unix(now) / period) and Remaining = period - unix(now) mod period,
// so an instant exactly on a window boundary reports a full window.
func Generate(p Params, now time.Time) (Code, error) {
	if err := p.Validate(); err != nil {
		return Code{}, err
	}
	alg, _ := p.Algorithm.otp()

	ts := now.Unix()
	if ts < 0 {
		return Code{}, ErrInvalidTime
	}
	period := int64(p.Period)
	counter := uint64(ts / period)

	value, err := hotp.GenerateCodeCustom(EncodeSecret(p.Secret), counter, hotp.ValidateOpts{
		Digits:    otp.Digits(p.Digits),
		Algorithm: alg,
	})
	if err != nil {
		return Code{}, failure.Wrapf(failure.Input, "totp: generate code: %w", err)
	}

	return Code{
		Value:     value,
		Counter:   counter,
		Remaining: int(period - ts%period),
		Period:    p.Period,
	}, nil
}

// EncodeSecret returns the unpadded upper-case base32 form of a raw secret.
func EncodeSecret(secret []byte) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)
}

// DecodeSecret parses a base32 secret as users type or paste it: case, spaces,
// dashes and missing padding are tolerated.
func DecodeSecret(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '=':
			return -1
		}
		return r
	}, strings.ToUpper(s))
	if cleaned == "" {
		return nil, ErrEmptySecret
	}

	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return secret, nil
}

// FormatCode splits a code into two groups for reading, e.g. "123 456".
func FormatCode(code string) string {
	if len(code) < MinDigits {
		return code
	}
	half := len(code) / 2
	return code[:half] + " " + code[half:]
}

// Placeholder returns the dashes shown while no code is available.
func Placeholder(digits int) string {
	if digits <= 0 {
		digits = DefaultDigits
	}
	return strings.Repeat("-", digits)
}

// Clock abstracts the current time so loops can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
