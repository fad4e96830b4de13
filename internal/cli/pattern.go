// Package cli provides shared utilities for CLI commands.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/forest6511/totpctl/pkg/failure"
	"github.com/forest6511/totpctl/pkg/vault"
)

// Errors
var (
	ErrInvalidPattern = failure.New(failure.Input, "invalid pattern")
	ErrNoMatch        = failure.New(failure.NotFound, "no credential matches")
)

// HasGlob reports whether pattern contains glob characters (*?[).
func HasGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func validatePattern(pattern string) error {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return fmt.Errorf("%w '%s': %v", ErrInvalidPattern, pattern, err)
	}
	return nil
}

// FilterNames returns the names matching pattern, case-insensitively. A
// pattern without glob characters matches names containing it. An empty
// pattern matches everything. No match is not an error.
func FilterNames(pattern string, names []string) ([]string, error) {
	if pattern == "" {
		return names, nil
	}
	pattern = vault.NormalizeName(pattern)
	lower := strings.ToLower(pattern)
	if !HasGlob(pattern) {
		return lo.Filter(names, func(n string, _ int) bool {
			return strings.Contains(strings.ToLower(n), lower)
		}), nil
	}
	if err := validatePattern(lower); err != nil {
		return nil, err
	}
	return lo.Filter(names, func(n string, _ int) bool {
		ok, _ := filepath.Match(lower, strings.ToLower(n))
		return ok
	}), nil
}

// ExpandPattern expands a glob pattern against available names.
// If the pattern contains glob characters (*?[), it performs glob matching.
// Otherwise, it performs exact matching. The pattern is NFC normalized
// first, like stored names.
func ExpandPattern(pattern string, names []string) ([]string, error) {
	pattern = vault.NormalizeName(pattern)
	if err := validatePattern(pattern); err != nil {
		return nil, err
	}

	if !HasGlob(pattern) {
		if lo.Contains(names, pattern) {
			return []string{pattern}, nil
		}
		return nil, fmt.Errorf("%w: '%s'", ErrNoMatch, pattern)
	}

	matches := lo.Filter(names, func(n string, _ int) bool {
		ok, _ := filepath.Match(pattern, n)
		return ok
	})
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w pattern '%s'", ErrNoMatch, pattern)
	}
	return matches, nil
}

// ExpandPatterns expands multiple patterns against available names.
// Returns unique matching names preserving order of first match.
func ExpandPatterns(patterns []string, names []string) ([]string, error) {
	var result []string
	for _, pattern := range patterns {
		matches, err := ExpandPattern(pattern, names)
		if err != nil {
			return nil, err
		}
		result = append(result, matches...)
	}
	return lo.Uniq(result), nil
}
