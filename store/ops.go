package store

import (
	"fmt"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/grammar"
	"github.com/c360/archivegraph/hierarchy"
	"github.com/c360/archivegraph/types/resource"
)

const component = "Store"

// AppendChild selects append position for AddEntity and MoveEntity.
const AppendChild = -1

// AddEntity inserts a new entity under parentID at the given index
// (AppendChild appends). An empty parentID inserts a standalone root, which
// only standalone kinds may be. Containment is validated before insertion;
// rejections carry the set of valid child kinds.
func (s *Snapshot) AddEntity(parentID string, entity *resource.Entity, index int) (*Snapshot, error) {
	if entity == nil || entity.ID == "" {
		return s, errors.WrapStructural(errors.ErrInvalidConfig, component, "AddEntity", "entity with non-empty id required")
	}
	if _, exists := s.entities[entity.ID]; exists {
		return s, errors.WrapStructural(errors.ErrDuplicateID, component, "AddEntity",
			fmt.Sprintf("insert entity %s", entity.ID))
	}

	if parentID == "" {
		if !grammar.IsStandalone(entity.Kind) {
			return s, errors.WrapStructural(errors.ErrInvalidContainment, component, "AddEntity",
				fmt.Sprintf("kind %q is not standalone", entity.Kind))
		}
		next := s.clone()
		next.entities[entity.ID] = entity.Clone()
		return next, nil
	}

	parent, ok := s.entities[parentID]
	if !ok {
		return s, errors.WrapStructural(errors.ErrParentNotFound, component, "AddEntity",
			fmt.Sprintf("resolve parent %s", parentID))
	}
	if err := hierarchy.ValidateContainment(parent.Kind, entity.Kind); err != nil {
		return s, errors.WrapStructural(err, component, "AddEntity", "validate containment")
	}

	next := s.clone()
	next.entities[entity.ID] = entity.Clone()
	newParent := parent.Clone()

	switch grammar.RelationshipTypeFor(parent.Kind, entity.Kind) {
	case grammar.Ownership:
		newParent.OwnedChildren = insertAt(newParent.OwnedChildren, entity.ID, index)
		next.parents[entity.ID] = parentID
	case grammar.Reference:
		newParent.ReferencedIDs = insertAt(newParent.ReferencedIDs, entity.ID, index)
		next.addRef(entity.ID, parentID)
	}

	next.entities[parentID] = newParent
	return next, nil
}

// RemoveEntity hard-removes id: it detaches id from its ownership parent,
// recursively removes all owned descendants, and strips the removed ids from
// every live referrer. Callers needing recoverability must route through the
// trash subsystem instead.
func (s *Snapshot) RemoveEntity(id string) (*Snapshot, error) {
	next, _, _, err := s.extract(id, true)
	return next, err
}

// Extract removes id and its owned descendants like RemoveEntity, but leaves
// referrers' reference lists intact (dangling) so a later Reinsert re-links
// them. It returns the removed entities in pre-order, root first, plus the
// prior ownership parent of the root. This is the trash subsystem's detach
// primitive.
func (s *Snapshot) Extract(id string) (*Snapshot, []*resource.Entity, string, error) {
	return s.extract(id, false)
}

func (s *Snapshot) extract(id string, stripRefs bool) (*Snapshot, []*resource.Entity, string, error) {
	if _, ok := s.entities[id]; !ok {
		return s, nil, "", errors.WrapStructural(errors.ErrNotFound, component, "RemoveEntity",
			fmt.Sprintf("resolve entity %s", id))
	}

	removedIDs := append([]string{id}, s.Descendants(id)...)
	removed := make([]*resource.Entity, 0, len(removedIDs))

	next := s.clone()
	originalParent := ""

	// Detach the root from its ownership parent.
	if parentID, ok := next.parents[id]; ok {
		originalParent = parentID
		if parent, ok := next.entities[parentID]; ok {
			newParent := parent.Clone()
			newParent.OwnedChildren = removeID(newParent.OwnedChildren, id)
			next.entities[parentID] = newParent
		}
	}

	for _, rid := range removedIDs {
		e, ok := next.entities[rid]
		if !ok {
			continue
		}
		removed = append(removed, e.Clone())

		// Outgoing references from the removed subtree: the targets stay
		// live and simply lose that one incoming reference.
		for _, target := range e.ReferencedIDs {
			next.dropRef(target, rid)
		}

		delete(next.entities, rid)
		delete(next.parents, rid)
		delete(next.refs, rid)
	}

	if stripRefs {
		// Hard removal scrubs the removed ids from every live referrer so no
		// dangling reference entries survive.
		for rid, e := range next.entities {
			changed := false
			for _, removedID := range removedIDs {
				if e.ReferencesID(removedID) {
					if !changed {
						e = e.Clone()
						changed = true
					}
					e.ReferencedIDs = removeID(e.ReferencedIDs, removedID)
				}
			}
			if changed {
				next.entities[rid] = e
			}
		}
	}

	return next, removed, originalParent, nil
}

// Reinsert puts previously extracted entities back into the live store,
// attaching the first (root) entity under parentID. The reference index is
// rebuilt for the reinserted ids, which re-links any referrers that kept
// dangling entries while the subtree was away. An attach edge the parent did
// not already hold is validated like AddToCollection: reference cycles and
// depth overruns are rejected against the relinked graph.
func (s *Snapshot) Reinsert(entities []*resource.Entity, parentID string, index int) (*Snapshot, error) {
	if len(entities) == 0 {
		return s, errors.WrapStructural(errors.ErrInvalidConfig, component, "Reinsert", "no entities to reinsert")
	}
	root := entities[0]
	for _, e := range entities {
		if _, exists := s.entities[e.ID]; exists {
			return s, errors.WrapStructural(errors.ErrDuplicateID, component, "Reinsert",
				fmt.Sprintf("id %s already live", e.ID))
		}
	}

	if parentID != "" {
		parent, ok := s.entities[parentID]
		if !ok {
			return s, errors.WrapStructural(errors.ErrParentNotFound, component, "Reinsert",
				fmt.Sprintf("resolve parent %s", parentID))
		}
		if err := hierarchy.ValidateContainment(parent.Kind, root.Kind); err != nil {
			return s, errors.WrapStructural(err, component, "Reinsert", "validate containment")
		}
	} else if !grammar.IsStandalone(root.Kind) {
		return s, errors.WrapStructural(errors.ErrInvalidContainment, component, "Reinsert",
			fmt.Sprintf("kind %q is not standalone", root.Kind))
	}

	next := s.clone()
	for _, e := range entities {
		next.entities[e.ID] = e.Clone()
	}

	// Rebuild ownership index inside the subtree.
	for _, e := range entities {
		for _, child := range e.OwnedChildren {
			next.parents[child] = e.ID
		}
	}

	// Rebuild the incoming-reference index: outgoing edges of the subtree
	// and edges from live entities that kept dangling entries.
	for _, e := range entities {
		for _, target := range e.ReferencedIDs {
			if _, live := next.entities[target]; live {
				next.addRef(target, e.ID)
			}
		}
	}
	reinserted := make(map[string]bool, len(entities))
	for _, e := range entities {
		reinserted[e.ID] = true
	}
	for id, e := range next.entities {
		if reinserted[id] {
			continue
		}
		for _, target := range e.ReferencedIDs {
			if reinserted[target] {
				next.addRef(target, id)
			}
		}
	}

	if parentID != "" {
		parent := next.entities[parentID].Clone()
		switch grammar.RelationshipTypeFor(parent.Kind, root.Kind) {
		case grammar.Ownership:
			if !parent.OwnsID(root.ID) {
				parent.OwnedChildren = insertAt(parent.OwnedChildren, root.ID, index)
			}
			next.parents[root.ID] = parentID
		case grammar.Reference:
			if !parent.ReferencesID(root.ID) {
				// A fresh attach edge parent->root closes a cycle if any
				// reinserted entity reaches the parent through the relinked
				// reference graph.
				for _, e := range entities {
					if next.referenceReaches(e.ID, parentID, make(map[string]bool)) {
						return s, errors.WrapStructural(errors.ErrCycleDetected, component, "Reinsert",
							fmt.Sprintf("attaching %s under %s would close a reference cycle", root.ID, parentID))
					}
				}
				if next.refHeightAbove(parentID)+1+next.refDepthFrom(root.ID, make(map[string]bool)) > s.maxDepth {
					return s, errors.WrapStructural(errors.ErrDepthExceeded, component, "Reinsert",
						fmt.Sprintf("reference graph would exceed depth %d", s.maxDepth))
				}
				parent.ReferencedIDs = insertAt(parent.ReferencedIDs, root.ID, index)
			}
			next.addRef(root.ID, parentID)
		}
		next.entities[parentID] = parent
	}

	return next, nil
}

// MoveEntity atomically detaches id and reattaches it under newParentID at
// the given index. The move is validated as a single unit: a rejected move
// never leaves the entity detached.
func (s *Snapshot) MoveEntity(id, newParentID string, index int) (*Snapshot, error) {
	entity, ok := s.entities[id]
	if !ok {
		return s, errors.WrapStructural(errors.ErrNotFound, component, "MoveEntity",
			fmt.Sprintf("resolve entity %s", id))
	}
	newParent, ok := s.entities[newParentID]
	if !ok {
		return s, errors.WrapStructural(errors.ErrParentNotFound, component, "MoveEntity",
			fmt.Sprintf("resolve parent %s", newParentID))
	}
	if err := hierarchy.ValidateContainment(newParent.Kind, entity.Kind); err != nil {
		return s, errors.WrapStructural(err, component, "MoveEntity", "validate containment")
	}

	switch grammar.RelationshipTypeFor(newParent.Kind, entity.Kind) {
	case grammar.Ownership:
		return s.moveOwned(entity, newParentID, index)
	default:
		return s.moveReferenced(entity, newParentID, index)
	}
}

func (s *Snapshot) moveOwned(entity *resource.Entity, newParentID string, index int) (*Snapshot, error) {
	id := entity.ID
	oldParentID, hadParent := s.parents[id]

	// A canvas is owned exclusively by one manifest for its whole life.
	if entity.Kind == resource.KindCanvas && hadParent && oldParentID != newParentID {
		return s, errors.WrapStructural(errors.ErrInvalidContainment, component, "MoveEntity",
			fmt.Sprintf("canvas %s cannot be reparented to another manifest", id))
	}

	// Moving an entity under its own ownership descendant would detach the
	// subtree from the root.
	for _, descendant := range s.Descendants(id) {
		if descendant == newParentID {
			return s, errors.WrapStructural(errors.ErrCycleDetected, component, "MoveEntity",
				fmt.Sprintf("parent %s is a descendant of %s", newParentID, id))
		}
	}

	next := s.clone()
	if hadParent {
		if oldParent, ok := next.entities[oldParentID]; ok {
			cloned := oldParent.Clone()
			cloned.OwnedChildren = removeID(cloned.OwnedChildren, id)
			next.entities[oldParentID] = cloned
		}
	}
	parent := next.entities[newParentID].Clone()
	parent.OwnedChildren = insertAt(removeID(parent.OwnedChildren, id), id, index)
	next.entities[newParentID] = parent
	next.parents[id] = newParentID
	return next, nil
}

func (s *Snapshot) moveReferenced(entity *resource.Entity, newParentID string, index int) (*Snapshot, error) {
	id := entity.ID

	if s.referenceReaches(id, newParentID, make(map[string]bool)) {
		return s, errors.WrapStructural(errors.ErrCycleDetected, component, "MoveEntity",
			fmt.Sprintf("moving %s under %s would close a reference cycle", id, newParentID))
	}

	// A reference move swaps one edge. With several referrers the edge to
	// detach is ambiguous; callers must use the collection operations.
	referrers := s.referrersOf(id)
	if len(referrers) > 1 {
		return s, errors.WrapStructural(errors.ErrInvalidContainment, component, "MoveEntity",
			fmt.Sprintf("%s is referenced by %d holders; detach explicitly first", id, len(referrers)))
	}

	next := s.clone()
	if len(referrers) == 1 && referrers[0] != newParentID {
		old := next.entities[referrers[0]].Clone()
		old.ReferencedIDs = removeID(old.ReferencedIDs, id)
		next.entities[referrers[0]] = old
		next.dropRef(id, referrers[0])
	}
	parent := next.entities[newParentID].Clone()
	parent.ReferencedIDs = insertAt(removeID(parent.ReferencedIDs, id), id, index)
	next.entities[newParentID] = parent
	next.addRef(id, newParentID)
	return next, nil
}

// ScrubReferences removes the given ids from every live entity's reference
// list. Used when trashed entities are hard-deleted, so no dangling
// reference entries survive permanent expiry.
func (s *Snapshot) ScrubReferences(ids []string) (*Snapshot, error) {
	if len(ids) == 0 {
		return s, nil
	}
	targets := make(map[string]bool, len(ids))
	for _, id := range ids {
		targets[id] = true
	}

	next := s.clone()
	for id, e := range next.entities {
		changed := false
		for _, ref := range e.ReferencedIDs {
			if targets[ref] {
				if !changed {
					e = e.Clone()
					changed = true
				}
				e.ReferencedIDs = removeID(e.ReferencedIDs, ref)
			}
		}
		if changed {
			next.entities[id] = e
		}
	}
	return next, nil
}

// ReorderChildren re-sequences the children of one parent. Ids in ordered
// that are not current children are ignored without error; current children
// not mentioned keep their relative order after the mentioned ones. This
// idempotent-safe behavior is deliberate.
func (s *Snapshot) ReorderChildren(parentID string, ordered []string) (*Snapshot, error) {
	parent, ok := s.entities[parentID]
	if !ok {
		return s, errors.WrapStructural(errors.ErrNotFound, component, "ReorderChildren",
			fmt.Sprintf("resolve parent %s", parentID))
	}

	next := s.clone()
	cloned := parent.Clone()
	cloned.OwnedChildren = resequence(cloned.OwnedChildren, ordered)
	cloned.ReferencedIDs = resequence(cloned.ReferencedIDs, ordered)
	next.entities[parentID] = cloned
	return next, nil
}

// resequence reorders current so that ids mentioned in ordered come first in
// that order, followed by unmentioned ids in their existing order. Unknown
// ids in ordered are ignored.
func resequence(current, ordered []string) []string {
	if len(current) == 0 {
		return current
	}
	present := make(map[string]bool, len(current))
	for _, id := range current {
		present[id] = true
	}

	next := make([]string, 0, len(current))
	mentioned := make(map[string]bool)
	for _, id := range ordered {
		if present[id] && !mentioned[id] {
			mentioned[id] = true
			next = append(next, id)
		}
	}
	for _, id := range current {
		if !mentioned[id] {
			next = append(next, id)
		}
	}
	return next
}

func insertAt(list []string, id string, index int) []string {
	if index < 0 || index >= len(list) {
		return append(append([]string(nil), list...), id)
	}
	next := make([]string, 0, len(list)+1)
	next = append(next, list[:index]...)
	next = append(next, id)
	next = append(next, list[index:]...)
	return next
}

func removeID(list []string, id string) []string {
	next := make([]string, 0, len(list))
	for _, item := range list {
		if item != id {
			next = append(next, item)
		}
	}
	return next
}
