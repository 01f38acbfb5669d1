// Package registry holds the immutable catalog of locally served models and
// the capabilities each one is declared to support.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Registry is an immutable mapping from Key to Descriptor. It is safe for
// concurrent readers; nothing mutates it after New returns.
type Registry struct {
	entries []Entry
	byKey   map[Key]int
	byID    map[string]int
}

// New validates entries and builds a registry. Every violation is reported,
// joined into one error, so a broken catalog can be fixed in one pass.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byKey:   make(map[Key]int, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}

	// Keys and IDs are claimed even by invalid entries so that a later
	// duplicate is still reported.
	keyOwners := make(map[Key]bool, len(entries))
	idOwners := make(map[string]Key, len(entries))

	var errs []error
	for _, e := range entries {
		entryErrs := checkEntry(e)
		if strings.TrimSpace(string(e.Key)) != "" {
			if keyOwners[e.Key] {
				entryErrs = append(entryErrs, &ConfigError{Key: e.Key, ID: e.Descriptor.ID, Err: ErrDuplicateKey})
			}
			keyOwners[e.Key] = true
		}
		if id := e.Descriptor.ID; strings.TrimSpace(id) != "" {
			if owner, dup := idOwners[id]; dup {
				entryErrs = append(entryErrs, &ConfigError{
					Key:    e.Key,
					ID:     id,
					Err:    ErrDuplicateID,
					Detail: fmt.Sprintf("already used by %q", string(owner)),
				})
			} else {
				idOwners[id] = e.Key
			}
		}
		if len(entryErrs) > 0 {
			errs = append(errs, entryErrs...)
			continue
		}
		r.byKey[e.Key] = len(r.entries)
		r.byID[e.Descriptor.ID] = len(r.entries)
		r.entries = append(r.entries, e)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func checkEntry(e Entry) []error {
	var errs []error
	d := e.Descriptor
	if strings.TrimSpace(string(e.Key)) == "" {
		errs = append(errs, &ConfigError{Key: e.Key, ID: d.ID, Err: ErrEmptyKey})
	}
	if strings.TrimSpace(d.ID) == "" {
		errs = append(errs, &ConfigError{Key: e.Key, Err: ErrEmptyID})
	}
	if !d.Provider.Valid() {
		errs = append(errs, &ConfigError{Key: e.Key, ID: d.ID, Err: ErrUnknownProvider, Detail: fmt.Sprintf("%q", string(d.Provider))})
	}
	for _, c := range d.caps {
		if !c.Valid() {
			errs = append(errs, &ConfigError{Key: e.Key, ID: d.ID, Err: ErrUnknownCapability, Detail: fmt.Sprintf("%q", string(c))})
		}
	}
	if d.Has(CapabilityStructuredOutputSimple) && d.Has(CapabilityStructuredOutputFull) {
		errs = append(errs, &ConfigError{
			Key:    e.Key,
			ID:     d.ID,
			Err:    ErrInvalidCapabilityCombination,
			Detail: fmt.Sprintf("%s and %s are mutually exclusive", CapabilityStructuredOutputSimple, CapabilityStructuredOutputFull),
		})
	}
	return errs
}

// Get returns the descriptor registered under key.
func (r *Registry) Get(key Key) (Descriptor, error) {
	i, ok := r.byKey[key]
	if !ok {
		return Descriptor{}, &LookupError{Key: string(key), Err: ErrUnknownKey}
	}
	return r.entries[i].Descriptor, nil
}

// MustGet is Get for keys known to exist, such as the builtin constants.
func (r *Registry) MustGet(key Key) Descriptor {
	d, err := r.Get(key)
	if err != nil {
		panic(err)
	}
	return d
}

// LookupID finds the entry whose wire identifier is id.
func (r *Registry) LookupID(id string) (Entry, error) {
	i, ok := r.byID[id]
	if !ok {
		return Entry{}, &LookupError{Key: id, Err: ErrUnknownID}
	}
	return r.entries[i], nil
}

// List returns every entry in declaration order.
func (r *Registry) List() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Keys returns every key in declaration order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.Key
	}
	return keys
}

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Filter returns the entries declaring every capability in required.
// With no arguments it behaves like List.
func (r *Registry) Filter(required ...Capability) []Entry {
	out := []Entry{}
	for _, e := range r.entries {
		ok := true
		for _, c := range required {
			if !e.Descriptor.Has(c) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}
