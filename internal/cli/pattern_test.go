package cli

import (
	"errors"
	"slices"
	"testing"

	"github.com/forest6511/totpctl/pkg/failure"
)

var names = []string{
	"aws-prod",
	"aws-staging",
	"GitHub",
	"gitlab",
	"work",
}

func TestFilterNames(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected []string
		wantErr  bool
	}{
		{name: "empty matches all", pattern: "", expected: names},
		{name: "substring", pattern: "git", expected: []string{"GitHub", "gitlab"}},
		{name: "substring is case-insensitive", pattern: "GITHUB", expected: []string{"GitHub"}},
		{name: "glob prefix", pattern: "aws-*", expected: []string{"aws-prod", "aws-staging"}},
		{name: "glob is case-insensitive", pattern: "G*", expected: []string{"GitHub", "gitlab"}},
		{name: "question mark", pattern: "wor?", expected: []string{"work"}},
		{name: "no match", pattern: "nothing*", expected: nil},
		{name: "invalid pattern", pattern: "[invalid", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := FilterNames(tc.pattern, names)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidPattern) {
					t.Errorf("error = %v, want %v", err, ErrInvalidPattern)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result) != len(tc.expected) || (len(result) > 0 && !slices.Equal(result, tc.expected)) {
				t.Errorf("got %v, want %v", result, tc.expected)
			}
		})
	}
}

func TestExpandPattern(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected []string
		wantErr  bool
	}{
		{name: "exact match", pattern: "work", expected: []string{"work"}},
		{name: "exact is case-sensitive", pattern: "github", wantErr: true},
		{name: "wildcard prefix", pattern: "aws-*", expected: []string{"aws-prod", "aws-staging"}},
		{name: "wildcard suffix", pattern: "*lab", expected: []string{"gitlab"}},
		{name: "no match glob", pattern: "none-*", wantErr: true},
		{name: "no match exact", pattern: "none", wantErr: true},
		{name: "invalid pattern", pattern: "[invalid", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ExpandPattern(tc.pattern, names)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(result, tc.expected) {
				t.Errorf("got %v, want %v", result, tc.expected)
			}
		})
	}
}

func TestPatternsMatchNormalizedNames(t *testing.T) {
	stored := []string{"caf\u00e9", "cafeteria"}
	decomposed := "cafe\u0301"

	got, err := ExpandPattern(decomposed, stored)
	if err != nil {
		t.Fatalf("ExpandPattern() error = %v", err)
	}
	if !slices.Equal(got, []string{"caf\u00e9"}) {
		t.Errorf("ExpandPattern() = %q", got)
	}

	got, err = ExpandPattern(decomposed+"*", stored)
	if err != nil || !slices.Equal(got, []string{"caf\u00e9"}) {
		t.Errorf("ExpandPattern(glob) = %q, %v", got, err)
	}

	got, err = FilterNames(decomposed, stored)
	if err != nil || !slices.Equal(got, []string{"caf\u00e9"}) {
		t.Errorf("FilterNames() = %q, %v", got, err)
	}
}

func TestExpandPatternsUnique(t *testing.T) {
	result, err := ExpandPatterns([]string{"aws-*", "aws-prod", "work"}, names)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"aws-prod", "aws-staging", "work"}
	if !slices.Equal(result, want) {
		t.Errorf("got %v, want %v", result, want)
	}

	_, err = ExpandPatterns([]string{"work", "missing"}, names)
	if failure.KindOf(err) != failure.NotFound {
		t.Errorf("KindOf() = %v, want %v", failure.KindOf(err), failure.NotFound)
	}
}
