package totp

import (
	"fmt"

	"github.com/pquerna/otp"
)

// Key is a credential described by an otpauth:// URI.
type Key struct {
	Issuer  string
	Account string
	Params  Params
}

// ParseURI reads an otpauth://totp/ URI as produced by provisioning pages.
// Missing digits, period or algorithm fall back to the RFC defaults.
func ParseURI(uri string) (*Key, error) {
	k, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if k.Type() != "totp" {
		return nil, fmt.Errorf("%w: type %q is not supported", ErrInvalidURI, k.Type())
	}

	secret, err := DecodeSecret(k.Secret())
	if err != nil {
		return nil, err
	}

	params := Params{
		Secret:    secret,
		Algorithm: SHA1,
		Digits:    int(k.Digits()),
		Period:    int(k.Period()),
	}
	switch k.Algorithm() {
	case otp.AlgorithmSHA256:
		params.Algorithm = SHA256
	case otp.AlgorithmSHA512:
		params.Algorithm = SHA512
	case otp.AlgorithmSHA1:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlgorithm, k.Algorithm())
	}
	if params.Digits == 0 {
		params.Digits = DefaultDigits
	}
	if params.Period == 0 {
		params.Period = DefaultPeriod
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Key{
		Issuer:  k.Issuer(),
		Account: k.AccountName(),
		Params:  params,
	}, nil
}
