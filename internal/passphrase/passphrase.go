// Package passphrase obtains the master passphrase.
//
// The passphrase is kept in the platform credential store. When none is
// stored the user is asked to choose one, typing it twice; the confirmed
// value is stored and returned. Nothing is persisted until both entries match.
package passphrase

import (
	"context"
	"errors"
	"time"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"github.com/forest6511/totpctl/internal/keystore"
	"github.com/forest6511/totpctl/internal/prompt"
	"github.com/forest6511/totpctl/pkg/crypto"
	"github.com/forest6511/totpctl/pkg/failure"
)

const (
	// DefaultAttempts bounds how many times a mismatching confirmation is re-prompted.
	DefaultAttempts = 3

	// MinScore is the zxcvbn score (0-4) below which a weak passphrase warning is shown.
	MinScore = 3
)

// Errors
var (
	ErrPassphraseMismatch = failure.New(failure.Input, "passphrase: entries do not match")
	ErrNotStored          = keystore.ErrNotFound
)

// Provider resolves the master passphrase from a keystore, falling back to
// an interactive setup.
type Provider struct {
	store    keystore.Store
	prompter prompt.Prompter
	service  string
	attempts uint64
}

// Option configures a Provider.
type Option func(*Provider)

// WithAttempts sets the total number of setup attempts.
func WithAttempts(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.attempts = uint64(n)
		}
	}
}

// WithService sets the keystore service name.
func WithService(service string) Option {
	return func(p *Provider) {
		if service != "" {
			p.service = service
		}
	}
}

// New returns a Provider backed by store that asks questions through prompter.
func New(store keystore.Store, prompter prompt.Prompter, opts ...Option) *Provider {
	p := &Provider{
		store:    store,
		prompter: prompter,
		service:  keystore.DefaultService,
		attempts: DefaultAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Obtain returns the stored passphrase, or runs first-time setup when none
// is stored. The caller must Destroy the result.
func (p *Provider) Obtain(ctx context.Context) (*crypto.Passphrase, error) {
	pass, err := p.Lookup()
	if err == nil {
		return pass, nil
	}
	if !errors.Is(err, keystore.ErrNotFound) {
		return nil, err
	}

	p.prompter.Notice("No master passphrase is stored yet. Choose one to protect the vault; it will be kept in the system keychain.")
	pass, err = p.Choose(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Replace(pass); err != nil {
		pass.Destroy()
		return nil, err
	}
	return pass, nil
}

// Lookup returns the stored passphrase without prompting. It returns
// ErrNotStored when the keystore has none.
func (p *Provider) Lookup() (*crypto.Passphrase, error) {
	data, err := p.store.GetSecret(p.service, keystore.MasterAccount)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return nil, ErrNotStored
		}
		return nil, asStoreError(err)
	}
	return crypto.NewPassphrase(data)
}

// Ask reads an existing passphrase once, without confirmation, for unlocking
// a vault whose passphrase is not stored. Nothing is stored.
func (p *Provider) Ask(label string) (*crypto.Passphrase, error) {
	data, err := p.prompter.Secret(label)
	if err != nil {
		return nil, err
	}
	return crypto.NewPassphrase(data)
}

// Choose asks for a new passphrase twice, re-prompting on mismatch up to the
// configured number of attempts. Nothing is stored.
func (p *Provider) Choose(ctx context.Context) (*crypto.Passphrase, error) {
	var chosen *crypto.Passphrase
	backoff := retry.WithMaxRetries(p.attempts-1, retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		first, err := p.prompter.Secret("Master passphrase")
		if err != nil {
			return err
		}
		a, err := crypto.NewPassphrase(first)
		if err != nil {
			return err
		}

		second, err := p.prompter.Secret("Confirm master passphrase")
		if err != nil {
			a.Destroy()
			return err
		}
		b, err := crypto.NewPassphrase(second)
		if err != nil {
			a.Destroy()
			return retry.RetryableError(p.mismatch())
		}
		defer b.Destroy()

		if !a.Equal(b) {
			a.Destroy()
			return retry.RetryableError(p.mismatch())
		}
		chosen = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.reportStrength(chosen)
	return chosen, nil
}

func (p *Provider) mismatch() error {
	p.prompter.Notice("Passphrases do not match, try again.")
	return ErrPassphraseMismatch
}

// reportStrength warns about guessable passphrases. It never blocks setup.
func (p *Provider) reportStrength(pass *crypto.Passphrase) {
	score := zxcvbn.PasswordStrength(string(pass.Bytes()), []string{"totpctl"}).Score
	log.Debug().Int("score", score).Msg("passphrase strength")
	if score < MinScore {
		p.prompter.Notice("warning: this passphrase is easy to guess (strength %d/4); consider a longer one.", score)
	}
}

// Replace stores pass as the master passphrase.
func (p *Provider) Replace(pass *crypto.Passphrase) error {
	if err := p.store.SetSecret(p.service, keystore.MasterAccount, pass.Bytes()); err != nil {
		return asStoreError(err)
	}
	return nil
}

// Forget removes the stored passphrase. Removing a passphrase that is not
// stored is not an error.
func (p *Provider) Forget() error {
	err := p.store.DeleteSecret(p.service, keystore.MasterAccount)
	if err != nil && !errors.Is(err, keystore.ErrNotFound) {
		return asStoreError(err)
	}
	return nil
}

func asStoreError(err error) error {
	if failure.KindOf(err) == failure.Unknown {
		return failure.Wrapf(failure.CredentialStore, "passphrase: credential store: %w", err)
	}
	return err
}
