package registry

import (
	"slices"
	"strings"
)

// Key is the programmer-facing name of a registry entry. It is stable across
// versions and never sent to the serving endpoint.
type Key string

func (k Key) String() string { return string(k) }

// Descriptor describes one servable model. Capabilities are declared by the
// integrator and are not verified against the server.
//
// Get returns descriptors by value. The capability set is unexported and never
// written after construction, so copies can be shared freely.
type Descriptor struct {
	// ID is the wire-level model identifier, passed through untouched.
	ID       string
	Provider ProviderKind

	caps []Capability // sorted by declaration order, no duplicates
}

// NewDescriptor builds a descriptor. Repeated capabilities collapse into one.
func NewDescriptor(provider ProviderKind, id string, caps ...Capability) Descriptor {
	set := make([]Capability, 0, len(caps))
	for _, c := range caps {
		if !slices.Contains(set, c) {
			set = append(set, c)
		}
	}
	slices.SortStableFunc(set, func(a, b Capability) int {
		if a.order() != b.order() {
			return a.order() - b.order()
		}
		return strings.Compare(string(a), string(b))
	})
	return Descriptor{ID: id, Provider: provider, caps: set}
}

// Has reports whether c is declared for the model.
func (d Descriptor) Has(c Capability) bool {
	return slices.Contains(d.caps, c)
}

// Capabilities returns a copy of the declared set. It is empty, never nil,
// when nothing is declared.
func (d Descriptor) Capabilities() []Capability {
	out := make([]Capability, len(d.caps))
	copy(out, d.caps)
	return out
}

// Len returns the number of declared capabilities.
func (d Descriptor) Len() int { return len(d.caps) }

// Equal reports value equality.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.ID == o.ID && d.Provider == o.Provider && slices.Equal(d.caps, o.caps)
}

// HasCapability reports whether c is a member of d's declared capabilities.
func HasCapability(d Descriptor, c Capability) bool {
	return d.Has(c)
}

// Entry pairs a key with its descriptor.
type Entry struct {
	Key        Key
	Descriptor Descriptor
}
