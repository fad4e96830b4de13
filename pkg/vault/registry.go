package vault

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Registry is the in-memory collection of credentials keyed by name.
//
// A Registry is not safe for concurrent use and never persists itself;
// callers hand it to a Repository to save.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Add inserts e. The name is NFC normalized first. A name already present
// yields ErrDuplicateName and leaves the registry unchanged.
func (r *Registry) Add(e Entry) error {
	e.Name = NormalizeName(e.Name)
	if err := e.Validate(); err != nil {
		return err
	}
	if _, ok := r.entries[e.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
	}
	r.entries[e.Name] = e.clone()
	return nil
}

// Get returns a copy of the entry stored under name.
func (r *Registry) Get(name string) (Entry, bool) {
	e, ok := r.entries[NormalizeName(name)]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Delete removes and returns the entry stored under name.
func (r *Registry) Delete(name string) (Entry, bool) {
	name = NormalizeName(name)
	e, ok := r.entries[name]
	if ok {
		delete(r.entries, name)
	}
	return e, ok
}

// Names returns the stored names in sorted order. Each call returns a new slice.
func (r *Registry) Names() []string {
	names := lo.Keys(r.entries)
	sort.Strings(names)
	return names
}

// Len returns the number of stored entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns a snapshot of all entries ordered case-insensitively by name.
func (r *Registry) Entries() []Entry {
	out := lo.MapToSlice(r.entries, func(_ string, e Entry) Entry {
		return e.clone()
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Equal reports whether both registries hold the same entries.
func (r *Registry) Equal(other *Registry) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.entries) != len(other.entries) {
		return false
	}
	for name, e := range r.entries {
		o, ok := other.entries[name]
		if !ok || !e.equal(o) {
			return false
		}
	}
	return true
}

func registryFromEntries(entries []Entry) (*Registry, error) {
	r := NewRegistry()
	for _, e := range entries {
		if err := r.Add(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}
