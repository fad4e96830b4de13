package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/totpctl/pkg/failure"
	"github.com/forest6511/totpctl/pkg/totp"
)

// Entry is one stored TOTP credential.
//
// Secret holds the raw seed bytes. Inside the encrypted payload it is written
// as unpadded base32 so the decrypted document stays readable by other tools.
type Entry struct {
	Name      string         `json:"name" validate:"entryname"`
	Secret    []byte         `json:"-" validate:"min=1,max=1024"`
	Algorithm totp.Algorithm `json:"algorithm" validate:"oneof=SHA1 SHA256 SHA512"`
	Digits    int            `json:"digits" validate:"min=6,max=8"`
	Period    int            `json:"period" validate:"min=1,max=86400"`
	Issuer    string         `json:"issuer,omitempty" validate:"max=256"`
	Account   string         `json:"account,omitempty" validate:"max=256"`
}

// NewEntry returns an entry with the RFC 6238 defaults: SHA1, 6 digits, 30 seconds.
func NewEntry(name string, secret []byte) Entry {
	return Entry{
		Name:      name,
		Secret:    secret,
		Algorithm: totp.SHA1,
		Digits:    totp.DefaultDigits,
		Period:    totp.DefaultPeriod,
	}
}

// Params returns the generation parameters for the entry.
func (e Entry) Params() totp.Params {
	return totp.Params{
		Secret:    e.Secret,
		Algorithm: e.Algorithm,
		Digits:    e.Digits,
		Period:    e.Period,
	}
}

// Label returns "issuer (account)" with whichever parts are present.
func (e Entry) Label() string {
	switch {
	case e.Issuer != "" && e.Account != "":
		return e.Issuer + " (" + e.Account + ")"
	case e.Issuer != "":
		return e.Issuer
	default:
		return e.Account
	}
}

func (e Entry) clone() Entry {
	e.Secret = slices.Clone(e.Secret)
	return e
}

func (e Entry) equal(o Entry) bool {
	return e.Name == o.Name &&
		slices.Equal(e.Secret, o.Secret) &&
		e.Algorithm == o.Algorithm &&
		e.Digits == o.Digits &&
		e.Period == o.Period &&
		e.Issuer == o.Issuer &&
		e.Account == o.Account
}

type entryJSON struct {
	Name      string         `json:"name"`
	Secret    string         `json:"secret"`
	Algorithm totp.Algorithm `json:"algorithm"`
	Digits    int            `json:"digits"`
	Period    int            `json:"period"`
	Issuer    string         `json:"issuer,omitempty"`
	Account   string         `json:"account,omitempty"`
}

// MarshalJSON writes the secret as base32.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Name:      e.Name,
		Secret:    totp.EncodeSecret(e.Secret),
		Algorithm: e.Algorithm,
		Digits:    e.Digits,
		Period:    e.Period,
		Issuer:    e.Issuer,
		Account:   e.Account,
	})
}

// UnmarshalJSON reads the base32 secret back into raw bytes.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw entryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	secret, err := totp.DecodeSecret(raw.Secret)
	if err != nil {
		return err
	}
	*e = Entry{
		Name:      raw.Name,
		Secret:    secret,
		Algorithm: raw.Algorithm,
		Digits:    raw.Digits,
		Period:    raw.Period,
		Issuer:    raw.Issuer,
		Account:   raw.Account,
	}
	return nil
}

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("entryname", func(fl validator.FieldLevel) bool {
		return validateName(fl.Field().String()) == nil
	})
	return v
}

// NormalizeName returns the canonical (NFC) form of a credential name.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// validateName checks a normalized credential name.
func validateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: not valid UTF-8", ErrNameInvalid)
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return fmt.Errorf("%w: %d characters exceeds maximum of %d", ErrNameTooLong, n, MaxNameLength)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: leading or trailing whitespace", ErrNameInvalid)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character %U is not allowed", ErrNameInvalid, r)
		}
	}
	return nil
}

// Validate checks the entry's name and generation parameters.
func (e Entry) Validate() error {
	if err := validateName(e.Name); err != nil {
		return err
	}
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrInvalidEntry, verrs[0].Field(), verrs[0].Tag())
		}
		return failure.Wrapf(failure.Input, "vault: validate entry: %w", err)
	}
	return nil
}
