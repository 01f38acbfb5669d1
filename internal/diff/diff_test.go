package diff

import (
	"strings"
	"testing"

	"github.com/everstacklabs/lmregistry/internal/registry"
)

func mustRegistry(t *testing.T, entries ...registry.Entry) *registry.Registry {
	t.Helper()
	r, err := registry.New(entries...)
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}
	return r
}

func entry(key, id string, caps ...registry.Capability) registry.Entry {
	return registry.Entry{
		Key:        registry.Key(key),
		Descriptor: registry.NewDescriptor(registry.ProviderOpenAI, id, caps...),
	}
}

func TestIdenticalRegistries(t *testing.T) {
	cs := Compute(registry.Builtin(), registry.Builtin())
	if cs.HasChanges() {
		t.Errorf("expected no changes, got %+v", cs)
	}
	if cs.Unchanged != registry.Builtin().Len() {
		t.Errorf("expected %d unchanged, got %d", registry.Builtin().Len(), cs.Unchanged)
	}
}

func TestAddedAndRemoved(t *testing.T) {
	from := mustRegistry(t, entry("A", "a", registry.CapabilityCompletion))
	to := mustRegistry(t, entry("B", "b", registry.CapabilityTools))

	cs := Compute(from, to)
	if len(cs.Added) != 1 || cs.Added[0].Key != "B" {
		t.Errorf("expected B added, got %+v", cs.Added)
	}
	if len(cs.Removed) != 1 || cs.Removed[0].Key != "A" {
		t.Errorf("expected A removed, got %+v", cs.Removed)
	}
	if len(cs.PossibleRenames) != 0 {
		t.Errorf("different descriptors should not pair as a rename: %+v", cs.PossibleRenames)
	}
}

func TestCapabilityChanges(t *testing.T) {
	from := mustRegistry(t, entry("A", "a", registry.CapabilityCompletion, registry.CapabilityStructuredOutputSimple))
	to := mustRegistry(t, entry("A", "a", registry.CapabilityCompletion, registry.CapabilityStructuredOutputFull))

	cs := Compute(from, to)
	if len(cs.Updated) != 1 {
		t.Fatalf("expected 1 updated, got %d", len(cs.Updated))
	}

	fields := make(map[string]bool)
	for _, c := range cs.Updated[0].Changes {
		fields[c.Field] = true
	}
	if !fields["capabilities.added"] || !fields["capabilities.removed"] {
		t.Errorf("expected capability additions and removals, got %+v", cs.Updated[0].Changes)
	}
}

func TestIDChange(t *testing.T) {
	from := mustRegistry(t, entry("A", "a-q4"))
	to := mustRegistry(t, entry("A", "a-q8"))

	cs := Compute(from, to)
	if len(cs.Updated) != 1 || cs.Updated[0].Changes[0].Field != "id" {
		t.Fatalf("expected id change, got %+v", cs.Updated)
	}
}

func TestRenameDetection(t *testing.T) {
	from := mustRegistry(t, entry("Gemma3", "gemma-3-4b-it-qat", registry.CapabilityCompletion))
	to := mustRegistry(t, entry("Gemma34BITQat", "gemma-3-4b-it-qat", registry.CapabilityCompletion))

	cs := Compute(from, to)
	if len(cs.PossibleRenames) != 1 {
		t.Fatalf("expected 1 rename, got %+v", cs.PossibleRenames)
	}
	rp := cs.PossibleRenames[0]
	if rp.OldKey != "Gemma3" || rp.NewKey != "Gemma34BITQat" {
		t.Errorf("unexpected rename %+v", rp)
	}
	if len(cs.Added) != 0 || len(cs.Removed) != 0 {
		t.Error("renamed entries should not also be listed as added or removed")
	}
}

func TestRenderSummary(t *testing.T) {
	from := mustRegistry(t, entry("A", "a", registry.CapabilityCompletion), entry("Gone", "gone"))
	to := mustRegistry(t, entry("A", "a", registry.CapabilityCompletion, registry.CapabilityTools), entry("New", "new"))

	cs := Compute(from, to)
	cs.From, cs.To = "builtin", "file"
	out := RenderSummary(cs)

	for _, want := range []string{
		"Catalog diff builtin -> file",
		"+ New (new)",
		"- Gone (gone)",
		"capabilities +[tools]",
		"1 added, 1 removed, 0 renamed, 1 updated, 0 unchanged",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummaryNoChanges(t *testing.T) {
	out := RenderSummary(Compute(registry.Builtin(), registry.Builtin()))
	if !strings.Contains(out, "no changes (8 unchanged)") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}
