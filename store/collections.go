package store

import (
	"fmt"
	"sort"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/hierarchy"
	"github.com/c360/archivegraph/types/resource"
)

// AddToCollection records a reference from the collection to the target
// manifest or collection. Adding an existing reference is a no-op, not an
// error. Cycles and depth overruns in the reference graph are rejected
// before the edge is committed.
func (s *Snapshot) AddToCollection(collectionID, targetID string) (*Snapshot, error) {
	collection, ok := s.entities[collectionID]
	if !ok {
		return s, errors.WrapStructural(errors.ErrNotFound, component, "AddToCollection",
			fmt.Sprintf("resolve collection %s", collectionID))
	}
	if collection.Kind != resource.KindCollection {
		return s, errors.WrapStructural(errors.ErrInvalidContainment, component, "AddToCollection",
			fmt.Sprintf("%s is a %s, not a collection", collectionID, collection.Kind))
	}
	target, ok := s.entities[targetID]
	if !ok {
		return s, errors.WrapStructural(errors.ErrNotFound, component, "AddToCollection",
			fmt.Sprintf("resolve target %s", targetID))
	}
	if err := hierarchy.ValidateContainment(collection.Kind, target.Kind); err != nil {
		return s, errors.WrapStructural(err, component, "AddToCollection", "validate containment")
	}

	if collection.ReferencesID(targetID) {
		// Idempotent: the reference already exists.
		return s, nil
	}

	if s.referenceReaches(targetID, collectionID, make(map[string]bool)) {
		return s, errors.WrapStructural(errors.ErrCycleDetected, component, "AddToCollection",
			fmt.Sprintf("adding %s to %s would close a reference cycle", targetID, collectionID))
	}
	if s.refHeightAbove(collectionID)+1+s.refDepthFrom(targetID, make(map[string]bool)) > s.maxDepth {
		return s, errors.WrapStructural(errors.ErrDepthExceeded, component, "AddToCollection",
			fmt.Sprintf("reference graph would exceed depth %d", s.maxDepth))
	}

	next := s.clone()
	cloned := collection.Clone()
	cloned.ReferencedIDs = append(cloned.ReferencedIDs, targetID)
	next.entities[collectionID] = cloned
	next.addRef(targetID, collectionID)
	return next, nil
}

// RemoveFromCollection drops the reference from the collection to the
// target. Removing an absent reference is a no-op. The referenced entity is
// never deleted; it may become an orphan, which is not invalid.
func (s *Snapshot) RemoveFromCollection(collectionID, targetID string) (*Snapshot, error) {
	collection, ok := s.entities[collectionID]
	if !ok {
		return s, errors.WrapStructural(errors.ErrNotFound, component, "RemoveFromCollection",
			fmt.Sprintf("resolve collection %s", collectionID))
	}
	if !collection.ReferencesID(targetID) {
		return s, nil
	}

	next := s.clone()
	cloned := collection.Clone()
	cloned.ReferencedIDs = removeID(cloned.ReferencedIDs, targetID)
	next.entities[collectionID] = cloned
	next.dropRef(targetID, collectionID)
	return next, nil
}

// CollectionsContaining returns the ids of live collections referencing id,
// sorted for determinism.
func (s *Snapshot) CollectionsContaining(id string) []string {
	var collections []string
	for _, referrer := range s.refs[id] {
		if e, ok := s.entities[referrer]; ok && e.Kind == resource.KindCollection {
			collections = append(collections, referrer)
		}
	}
	sort.Strings(collections)
	return collections
}

// CollectionMembers returns the ordered member ids of the collection.
func (s *Snapshot) CollectionMembers(collectionID string) ([]string, error) {
	collection, ok := s.entities[collectionID]
	if !ok {
		return nil, errors.WrapStructural(errors.ErrNotFound, component, "CollectionMembers",
			fmt.Sprintf("resolve collection %s", collectionID))
	}
	if collection.Kind != resource.KindCollection {
		return nil, errors.WrapStructural(errors.ErrInvalidContainment, component, "CollectionMembers",
			fmt.Sprintf("%s is a %s, not a collection", collectionID, collection.Kind))
	}
	return append([]string(nil), collection.ReferencedIDs...), nil
}

// IsOrphanManifest reports whether id is a live manifest referenced by zero
// collections. An orphan is valid; the report exists for curation.
func (s *Snapshot) IsOrphanManifest(id string) bool {
	e, ok := s.entities[id]
	if !ok || e.Kind != resource.KindManifest {
		return false
	}
	return len(s.CollectionsContaining(id)) == 0
}

// OrphanManifests returns every live manifest referenced by zero
// collections, sorted for determinism.
func (s *Snapshot) OrphanManifests() []string {
	var orphans []string
	for id, e := range s.entities {
		if e.Kind == resource.KindManifest && len(s.CollectionsContaining(id)) == 0 {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// refHeightAbove measures the longest referrer chain above id.
func (s *Snapshot) refHeightAbove(id string) int {
	return s.heightAbove(id, make(map[string]bool))
}

func (s *Snapshot) heightAbove(id string, seen map[string]bool) int {
	if seen[id] {
		return 0
	}
	seen[id] = true
	defer delete(seen, id)

	highest := 0
	for _, referrer := range s.refs[id] {
		if h := s.heightAbove(referrer, seen) + 1; h > highest {
			highest = h
		}
	}
	return highest
}
