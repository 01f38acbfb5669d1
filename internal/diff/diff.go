package diff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/everstacklabs/lmregistry/internal/catalog"
	"github.com/everstacklabs/lmregistry/internal/registry"
)

// Compute compares two registries entry by entry, matched on key.
func Compute(from, to *registry.Registry) *ChangeSet {
	cs := &ChangeSet{}

	var added, removed []ModelChange
	for _, e := range to.List() {
		old, err := from.Get(e.Key)
		if err != nil {
			added = append(added, ModelChange{Key: e.Key, Descriptor: e.Descriptor})
			continue
		}
		if changes := computeFieldChanges(e.Key, old, e.Descriptor); len(changes) > 0 {
			cs.Updated = append(cs.Updated, ModelUpdate{Key: e.Key, Changes: changes})
		} else {
			cs.Unchanged++
		}
	}
	for _, e := range from.List() {
		if _, err := to.Get(e.Key); err != nil {
			removed = append(removed, ModelChange{Key: e.Key, Descriptor: e.Descriptor})
		}
	}

	cs.PossibleRenames, cs.Added, cs.Removed = detectRenames(added, removed)
	return cs
}

func computeFieldChanges(key registry.Key, old, cur registry.Descriptor) []catalog.FieldChange {
	var changes []catalog.FieldChange
	model := key.String()

	if old.ID != cur.ID {
		changes = append(changes, catalog.FieldChange{Model: model, Field: "id", OldValue: old.ID, NewValue: cur.ID})
	}
	if old.Provider != cur.Provider {
		changes = append(changes, catalog.FieldChange{Model: model, Field: "provider", OldValue: old.Provider, NewValue: cur.Provider})
	}

	gained, lost := capabilityDelta(old, cur)
	if len(gained) > 0 {
		changes = append(changes, catalog.FieldChange{Model: model, Field: "capabilities.added", NewValue: gained})
	}
	if len(lost) > 0 {
		changes = append(changes, catalog.FieldChange{Model: model, Field: "capabilities.removed", OldValue: lost})
	}
	return changes
}

// capabilityDelta returns the tags only in cur and the tags only in old.
func capabilityDelta(old, cur registry.Descriptor) (gained, lost []registry.Capability) {
	for _, c := range cur.Capabilities() {
		if !old.Has(c) {
			gained = append(gained, c)
		}
	}
	for _, c := range old.Capabilities() {
		if !cur.Has(c) {
			lost = append(lost, c)
		}
	}
	return gained, lost
}

// detectRenames pairs removed and added keys whose descriptors are identical.
// Paired entries are taken out of the added and removed lists.
func detectRenames(added, removed []ModelChange) ([]RenamePair, []ModelChange, []ModelChange) {
	var renames []RenamePair
	matched := make(map[registry.Key]bool)

	var keptAdded []ModelChange
	for _, a := range added {
		i := slices.IndexFunc(removed, func(r ModelChange) bool {
			return !matched[r.Key] && r.Descriptor.Equal(a.Descriptor)
		})
		if i < 0 {
			keptAdded = append(keptAdded, a)
			continue
		}
		matched[removed[i].Key] = true
		renames = append(renames, RenamePair{OldKey: removed[i].Key, NewKey: a.Key})
	}

	var keptRemoved []ModelChange
	for _, r := range removed {
		if !matched[r.Key] {
			keptRemoved = append(keptRemoved, r)
		}
	}
	return renames, keptAdded, keptRemoved
}

// RenderSummary formats a changeset for terminal output.
func RenderSummary(cs *ChangeSet) string {
	var b strings.Builder

	title := "Catalog diff"
	if cs.From != "" || cs.To != "" {
		title = fmt.Sprintf("Catalog diff %s -> %s", cs.From, cs.To)
	}
	b.WriteString(title + "\n")

	if !cs.HasChanges() {
		fmt.Fprintf(&b, "  no changes (%d unchanged)\n", cs.Unchanged)
		return b.String()
	}

	for _, m := range cs.Added {
		fmt.Fprintf(&b, "  + %s (%s) %s\n", m.Key, m.Descriptor.ID, joinCaps(m.Descriptor.Capabilities()))
	}
	for _, m := range cs.Removed {
		fmt.Fprintf(&b, "  - %s (%s)\n", m.Key, m.Descriptor.ID)
	}
	for _, rp := range cs.PossibleRenames {
		fmt.Fprintf(&b, "  ~ %s renamed to %s\n", rp.OldKey, rp.NewKey)
	}
	for _, u := range cs.Updated {
		fmt.Fprintf(&b, "  * %s\n", u.Key)
		for _, c := range u.Changes {
			switch c.Field {
			case "capabilities.added":
				fmt.Fprintf(&b, "      capabilities +%s\n", joinCaps(c.NewValue.([]registry.Capability)))
			case "capabilities.removed":
				fmt.Fprintf(&b, "      capabilities -%s\n", joinCaps(c.OldValue.([]registry.Capability)))
			default:
				fmt.Fprintf(&b, "      %s: %v -> %v\n", c.Field, c.OldValue, c.NewValue)
			}
		}
	}

	fmt.Fprintf(&b, "  %d added, %d removed, %d renamed, %d updated, %d unchanged\n",
		len(cs.Added), len(cs.Removed), len(cs.PossibleRenames), len(cs.Updated), cs.Unchanged)
	return b.String()
}

func joinCaps(caps []registry.Capability) string {
	tags := make([]string, len(caps))
	for i, c := range caps {
		tags[i] = c.String()
	}
	return "[" + strings.Join(tags, ", ") + "]"
}
