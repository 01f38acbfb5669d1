package validate

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/everstacklabs/lmregistry/internal/catalog"
	"github.com/everstacklabs/lmregistry/internal/registry"
)

//go:embed schema.json
var catalogSchema string

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Prevents the catalog from loading
	SeverityWarning                 // Reported, does not block
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Model    string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s: %s", sev, i.Model, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

func (r *Result) add(sev Severity, model, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{sev, model, field, fmt.Sprintf(format, args...)})
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var warns []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		}
	}
	return warns
}

// Lint checks a raw catalog document: structure first, then the registry
// rules. The parsed document is returned only when it could be decoded.
func Lint(data []byte) (*catalog.Document, *Result) {
	r := ValidateSchema(data)
	if r.HasErrors() {
		return nil, r
	}

	doc, err := catalog.Parse(data)
	if err != nil {
		r.add(SeverityError, "catalog", "document", "%v", err)
		return nil, r
	}

	r.Issues = append(r.Issues, ValidateDocument(doc).Issues...)
	return doc, r
}

// ValidateSchema checks the document shape against the embedded JSON schema.
func ValidateSchema(data []byte) *Result {
	r := &Result{}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		r.add(SeverityError, "catalog", "document", "invalid YAML: %v", err)
		return r
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(catalogSchema),
		gojsonschema.NewGoLoader(raw),
	)
	if err != nil {
		r.add(SeverityError, "catalog", "document", "schema validation: %v", err)
		return r
	}
	for _, e := range res.Errors() {
		r.add(SeverityError, "catalog", e.Field(), "%s", e.Description())
	}
	return r
}

// ValidateDocument checks every model entry and the cross-entry uniqueness rules.
func ValidateDocument(doc *catalog.Document) *Result {
	r := &Result{}

	if doc.SchemaVersion != catalog.SchemaVersion {
		r.add(SeverityError, "catalog", "schema_version",
			"unsupported version %q, expected %q", doc.SchemaVersion, catalog.SchemaVersion)
	}

	keys := make(map[string]int)
	ids := make(map[string]string)
	for i, m := range doc.Models {
		name := m.Key
		if name == "" {
			name = fmt.Sprintf("models[%d]", i)
		}

		r.Issues = append(r.Issues, ValidateModel(&m, name).Issues...)

		if m.Key != "" {
			if first, dup := keys[m.Key]; dup {
				r.add(SeverityError, name, "key", "duplicate key, first declared at models[%d]", first)
			} else {
				keys[m.Key] = i
			}
		}
		if m.ID != "" {
			if owner, dup := ids[m.ID]; dup {
				r.add(SeverityError, name, "id", "id %q already used by %s", m.ID, owner)
			} else {
				ids[m.ID] = name
			}
		}
	}
	return r
}

// ValidateModel checks a single catalog entry.
func ValidateModel(m *catalog.Model, name string) *Result {
	r := &Result{}

	if strings.TrimSpace(m.Key) == "" {
		r.add(SeverityError, name, "key", "required field is empty")
	}
	if strings.TrimSpace(m.ID) == "" {
		r.add(SeverityError, name, "id", "required field is empty")
	} else if m.ID != strings.ToLower(strings.TrimSpace(m.ID)) {
		r.add(SeverityWarning, name, "id", "%q is not a trimmed lower-case identifier", m.ID)
	}

	if _, err := registry.ParseProviderKind(m.Provider); err != nil {
		r.add(SeverityError, name, "provider", "unknown provider %q, expected %q", m.Provider, registry.ProviderOpenAI)
	}

	if m.Capabilities == nil {
		r.add(SeverityWarning, name, "capabilities", "not declared, use [] to declare none")
	}

	seen := make(map[registry.Capability]bool, len(m.Capabilities))
	for _, tag := range m.Capabilities {
		c, err := registry.ParseCapability(tag)
		if err != nil {
			r.add(SeverityError, name, "capabilities", "unknown capability %q", tag)
			continue
		}
		if seen[c] {
			r.add(SeverityWarning, name, "capabilities", "capability %q listed more than once", tag)
		}
		seen[c] = true
	}

	if seen[registry.CapabilityStructuredOutputSimple] && seen[registry.CapabilityStructuredOutputFull] {
		r.add(SeverityError, name, "capabilities", "%s and %s are mutually exclusive",
			registry.CapabilityStructuredOutputSimple, registry.CapabilityStructuredOutputFull)
	}
	if seen[registry.CapabilityToolChoice] && !seen[registry.CapabilityTools] {
		r.add(SeverityWarning, name, "capabilities", "%s declared without %s",
			registry.CapabilityToolChoice, registry.CapabilityTools)
	}

	return r
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errors := r.Errors()
	warnings := r.Warnings()

	if len(errors) > 0 {
		fmt.Fprintf(&b, "Errors (%d):\n", len(errors))
		for _, e := range errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintf(&b, "Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}

	return b.String()
}
