package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

const header = "# Local model capability catalog.\n# Capabilities are declared by hand and not verified against the server.\n\n"

// FieldChange records a single field change for diff reporting.
type FieldChange struct {
	Model    string
	Field    string
	OldValue any
	NewValue any
}

// WriteResult reports what happened when a catalog was written.
type WriteResult struct {
	Path    string
	IsNew   bool
	Changes []FieldChange
}

// Writer writes catalog documents using a merge strategy:
// - Preserves comments and field ordering from the existing file
// - Keeps hand-written notes the incoming document does not carry
// - Takes model membership and order from the incoming document
type Writer struct {
	path string
}

// NewWriter creates a Writer for the catalog file at path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Write merges doc into the catalog file, creating it when missing.
func (w *Writer) Write(doc *Document) (*WriteResult, error) {
	result := &WriteResult{Path: w.path}

	existingData, err := os.ReadFile(w.path)
	if os.IsNotExist(err) {
		result.IsNew = true
		for _, m := range doc.Models {
			result.Changes = append(result.Changes, FieldChange{Model: m.Key, Field: "model", NewValue: m.ID})
		}
		return result, w.writeNew(doc)
	} else if err != nil {
		return nil, fmt.Errorf("reading existing catalog: %w", err)
	}

	var existingDoc yaml.Node
	if err := yaml.Unmarshal(existingData, &existingDoc); err != nil {
		return nil, fmt.Errorf("parsing existing YAML: %w", err)
	}

	existing, err := Parse(existingData)
	if err != nil {
		return nil, err
	}

	result.Changes = computeChanges(existing, doc)
	if len(result.Changes) == 0 {
		return result, nil
	}

	incomingData, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling catalog: %w", err)
	}
	var incomingDoc yaml.Node
	if err := yaml.Unmarshal(incomingData, &incomingDoc); err != nil {
		return nil, fmt.Errorf("parsing incoming YAML: %w", err)
	}

	merged := mergeNodes(&existingDoc, &incomingDoc)
	if existingDoc.Kind == yaml.DocumentNode && len(existingDoc.Content) > 0 {
		// Keep the document node so its head comment is written back.
		existingDoc.Content[0] = merged
		merged = &existingDoc
	}

	out, err := encodeNode(merged)
	if err != nil {
		return nil, fmt.Errorf("marshaling merged YAML: %w", err)
	}
	if err := os.WriteFile(w.path, out, 0o644); err != nil {
		return nil, fmt.Errorf("writing merged catalog: %w", err)
	}
	return result, nil
}

func (w *Writer) writeNew(doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("creating catalog dir: %w", err)
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(w.path, append([]byte(header), data...), 0o644)
}

// encodeNode writes n with the same indentation as Document.Marshal.
func encodeNode(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mergeNodes overlays src mapping keys onto dst mapping, preserving dst order
// and any keys in dst not present in src. The models sequence is merged entry
// by entry, matched on the key field.
func mergeNodes(dst, src *yaml.Node) *yaml.Node {
	if dst.Kind == yaml.DocumentNode && len(dst.Content) > 0 {
		dst = dst.Content[0]
	}
	if src.Kind == yaml.DocumentNode && len(src.Content) > 0 {
		src = src.Content[0]
	}

	if dst.Kind != yaml.MappingNode || src.Kind != yaml.MappingNode {
		return src
	}

	srcMap := make(map[string]*yaml.Node)
	for i := 0; i+1 < len(src.Content); i += 2 {
		srcMap[src.Content[i].Value] = src.Content[i+1]
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(dst.Content); i += 2 {
		key := dst.Content[i].Value
		srcVal, ok := srcMap[key]
		if !ok {
			continue
		}
		seen[key] = true
		dstVal := dst.Content[i+1]
		switch {
		case key == "models" && dstVal.Kind == yaml.SequenceNode && srcVal.Kind == yaml.SequenceNode:
			dst.Content[i+1] = mergeModels(dstVal, srcVal)
		default:
			if srcVal.LineComment == "" {
				srcVal.LineComment = dstVal.LineComment
			}
			dst.Content[i+1] = srcVal
		}
	}

	for i := 0; i+1 < len(src.Content); i += 2 {
		key := src.Content[i].Value
		if !seen[key] {
			dst.Content = append(dst.Content, src.Content[i], src.Content[i+1])
		}
	}

	return dst
}

// mergeModels rebuilds the models sequence in src order, reusing the dst
// node for models that already exist so their comments and notes survive.
func mergeModels(dst, src *yaml.Node) *yaml.Node {
	existing := make(map[string]*yaml.Node, len(dst.Content))
	for _, item := range dst.Content {
		if k := mappingValue(item, "key"); k != "" {
			existing[k] = item
		}
	}

	content := make([]*yaml.Node, 0, len(src.Content))
	for _, item := range src.Content {
		if prev, ok := existing[mappingValue(item, "key")]; ok {
			content = append(content, mergeNodes(prev, item))
			continue
		}
		content = append(content, item)
	}
	dst.Content = content
	return dst
}

func mappingValue(n *yaml.Node, key string) string {
	if n.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1].Value
		}
	}
	return ""
}

func computeChanges(existing, incoming *Document) []FieldChange {
	var changes []FieldChange

	old := make(map[string]Model, len(existing.Models))
	for _, m := range existing.Models {
		old[m.Key] = m
	}

	for _, m := range incoming.Models {
		prev, ok := old[m.Key]
		if !ok {
			changes = append(changes, FieldChange{Model: m.Key, Field: "model", NewValue: m.ID})
			continue
		}
		delete(old, m.Key)

		if prev.ID != m.ID {
			changes = append(changes, FieldChange{m.Key, "id", prev.ID, m.ID})
		}
		if prev.Provider != m.Provider {
			changes = append(changes, FieldChange{m.Key, "provider", prev.Provider, m.Provider})
		}
		if capabilitiesChanged(prev.Capabilities, m.Capabilities) {
			changes = append(changes, FieldChange{m.Key, "capabilities", prev.Capabilities, m.Capabilities})
		}
		if m.Notes != "" && prev.Notes != m.Notes {
			changes = append(changes, FieldChange{m.Key, "notes", prev.Notes, m.Notes})
		}
	}

	for _, m := range existing.Models {
		if _, gone := old[m.Key]; gone {
			changes = append(changes, FieldChange{Model: m.Key, Field: "model", OldValue: m.ID})
		}
	}

	if existing.SchemaVersion != incoming.SchemaVersion {
		changes = append(changes, FieldChange{Field: "schema_version", OldValue: existing.SchemaVersion, NewValue: incoming.SchemaVersion})
	}

	return changes
}

// capabilitiesChanged compares tag sets, ignoring order.
func capabilitiesChanged(a, b []string) bool {
	sa := slices.Clone(a)
	sb := slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return !slices.Equal(slices.Compact(sa), slices.Compact(sb))
}
