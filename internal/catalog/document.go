package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/everstacklabs/lmregistry/internal/registry"
)

// SchemaVersion is the catalog document version this package reads and writes.
const SchemaVersion = "1"

// Document is a catalog file. Fields hold raw strings so that a linter can
// report every bad tag; Build is the strict conversion.
type Document struct {
	SchemaVersion string  `yaml:"schema_version"`
	Models        []Model `yaml:"models"`
}

// Model is one entry of a catalog document.
type Model struct {
	Key          string   `yaml:"key"`
	ID           string   `yaml:"id"`
	Provider     string   `yaml:"provider"`
	Capabilities []string `yaml:"capabilities"`
	Notes        string   `yaml:"notes,omitempty"`
}

// Parse decodes a catalog document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing catalog: empty document")
		}
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &doc, nil
}

// Load reads and parses a catalog file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Build converts the document into a validated registry.
func (d *Document) Build() (*registry.Registry, error) {
	if d.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema_version %q, want %q", d.SchemaVersion, SchemaVersion)
	}

	var errs []error
	entries := make([]registry.Entry, 0, len(d.Models))
	for _, m := range d.Models {
		key := registry.Key(m.Key)

		provider, err := registry.ParseProviderKind(m.Provider)
		if err != nil {
			errs = append(errs, &registry.ConfigError{Key: key, ID: m.ID, Err: err})
			continue
		}

		caps := make([]registry.Capability, 0, len(m.Capabilities))
		bad := false
		for _, tag := range m.Capabilities {
			c, err := registry.ParseCapability(tag)
			if err != nil {
				errs = append(errs, &registry.ConfigError{Key: key, ID: m.ID, Err: err})
				bad = true
				continue
			}
			caps = append(caps, c)
		}
		if bad {
			continue
		}

		entries = append(entries, registry.Entry{
			Key:        key,
			Descriptor: registry.NewDescriptor(provider, m.ID, caps...),
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return registry.New(entries...)
}

// FromRegistry returns the document describing reg, in declaration order.
func FromRegistry(reg *registry.Registry) *Document {
	doc := &Document{SchemaVersion: SchemaVersion}
	for _, e := range reg.List() {
		caps := e.Descriptor.Capabilities()
		tags := make([]string, len(caps))
		for i, c := range caps {
			tags[i] = c.String()
		}
		doc.Models = append(doc.Models, Model{
			Key:          e.Key.String(),
			ID:           e.Descriptor.ID,
			Provider:     e.Descriptor.Provider.String(),
			Capabilities: tags,
		})
	}
	return doc
}

// Marshal encodes the document as YAML.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling catalog: %w", err)
	}
	return buf.Bytes(), nil
}
