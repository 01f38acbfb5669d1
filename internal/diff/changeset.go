package diff

import (
	"github.com/everstacklabs/lmregistry/internal/catalog"
	"github.com/everstacklabs/lmregistry/internal/registry"
)

// ChangeSet represents the complete diff between two registries.
type ChangeSet struct {
	From            string
	To              string
	Added           []ModelChange
	Removed         []ModelChange
	Updated         []ModelUpdate
	PossibleRenames []RenamePair
	Unchanged       int
}

// ModelChange represents an added or removed model.
type ModelChange struct {
	Key        registry.Key
	Descriptor registry.Descriptor
}

// ModelUpdate represents a model present in both registries with field changes.
type ModelUpdate struct {
	Key     registry.Key
	Changes []catalog.FieldChange
}

// RenamePair is a removed and an added key with the same descriptor.
type RenamePair struct {
	OldKey registry.Key
	NewKey registry.Key
}

// HasChanges reports whether the changeset has any modifications.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.Added) > 0 || len(cs.Removed) > 0 || len(cs.Updated) > 0 || len(cs.PossibleRenames) > 0
}

// TotalChanged returns the count of added + removed + updated models.
func (cs *ChangeSet) TotalChanged() int {
	return len(cs.Added) + len(cs.Removed) + len(cs.Updated) + len(cs.PossibleRenames)
}
