package registry

import "fmt"

// Capability is a request-time feature a model is declared to support.
// The set is closed: anything outside the constants below is rejected.
type Capability string

const (
	CapabilityCompletion             Capability = "completion"
	CapabilityToolChoice             Capability = "tool_choice"
	CapabilityTools                  Capability = "tools"
	CapabilitySpeculation            Capability = "speculation"
	CapabilityStructuredOutputSimple Capability = "structured_output_simple"
	CapabilityStructuredOutputFull   Capability = "structured_output_full"
)

var allCapabilities = []Capability{
	CapabilityCompletion,
	CapabilityToolChoice,
	CapabilityTools,
	CapabilitySpeculation,
	CapabilityStructuredOutputSimple,
	CapabilityStructuredOutputFull,
}

// AllCapabilities returns the closed capability set in declaration order.
func AllCapabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// ParseCapability converts a tag into a Capability.
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCapability, s)
	}
	return c, nil
}

// Valid reports whether c belongs to the closed set.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityCompletion, CapabilityToolChoice, CapabilityTools,
		CapabilitySpeculation, CapabilityStructuredOutputSimple, CapabilityStructuredOutputFull:
		return true
	}
	return false
}

func (c Capability) String() string {
	return string(c)
}

func (c Capability) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCapability, string(c))
	}
	return []byte(c), nil
}

func (c *Capability) UnmarshalText(b []byte) error {
	parsed, err := ParseCapability(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// order returns the declaration index, used to keep capability listings stable.
func (c Capability) order() int {
	for i, known := range allCapabilities {
		if known == c {
			return i
		}
	}
	return len(allCapabilities)
}

// ProviderKind selects the wire protocol dialect used to talk to the endpoint.
type ProviderKind string

// ProviderOpenAI is the OpenAI-compatible chat/completion dialect. Local
// servers such as LM Studio speak it whichever weights are loaded, so every
// builtin descriptor uses it.
const ProviderOpenAI ProviderKind = "openai"

// ParseProviderKind converts a tag into a ProviderKind.
func ParseProviderKind(s string) (ProviderKind, error) {
	p := ProviderKind(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return p, nil
}

// Valid reports whether p is a known dialect.
func (p ProviderKind) Valid() bool {
	return p == ProviderOpenAI
}

func (p ProviderKind) String() string {
	return string(p)
}

func (p ProviderKind) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, string(p))
	}
	return []byte(p), nil
}

func (p *ProviderKind) UnmarshalText(b []byte) error {
	parsed, err := ParseProviderKind(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
