package store

import (
	"encoding/json"
	"fmt"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/grammar"
	"github.com/c360/archivegraph/hierarchy"
	"github.com/c360/archivegraph/types/resource"
)

// Normalize walks a nested document depth-first and produces a flat snapshot:
// each node gets a slot in the entity map, ownership children record their
// parent, and reference children record the referencing holder. The same id
// may appear more than once only as a legitimate multi-reference: identical
// content (or a bare stub). A repeat with materially different content is a
// structural error.
func Normalize(doc *resource.Node, maxDepth int) (*Snapshot, error) {
	snap := NewSnapshot(maxDepth)
	if doc == nil {
		return snap, nil
	}

	// id -> canonical JSON of the first full (non-stub) occurrence.
	fullContent := make(map[string][]byte)

	var visit func(node *resource.Node, parent *resource.Node, depth int) error
	visit = func(node *resource.Node, parent *resource.Node, depth int) error {
		if depth > snap.maxDepth {
			return errors.WrapStructural(errors.ErrDepthExceeded, component, "Normalize",
				fmt.Sprintf("document nesting exceeds %d levels", snap.maxDepth))
		}
		if node.ID == "" {
			return errors.WrapStructural(errors.ErrInvalidConfig, component, "Normalize", "node without id")
		}

		relationship := grammar.None
		if parent != nil {
			if err := hierarchy.ValidateContainment(parent.Kind, node.Kind); err != nil {
				return errors.WrapStructural(err, component, "Normalize", "validate containment")
			}
			relationship = grammar.RelationshipTypeFor(parent.Kind, node.Kind)
		}

		existing, seen := snap.entities[node.ID]
		if seen {
			if relationship == grammar.Ownership {
				// An owned entity has exactly one owner; a second ownership
				// occurrence is a true duplicate.
				return errors.WrapStructural(errors.ErrDuplicateID, component, "Normalize",
					fmt.Sprintf("id %s owned twice", node.ID))
			}
			if node.IsStub() {
				if node.Kind != "" && node.Kind != existing.Kind {
					return errors.WrapStructural(errors.ErrDuplicateID, component, "Normalize",
						fmt.Sprintf("id %s restated with kind %q, previously %q", node.ID, node.Kind, existing.Kind))
				}
				recordEdge(snap, parent, node.ID, relationship)
				return nil
			}
			canonical, err := json.Marshal(node)
			if err != nil {
				return errors.WrapStructural(err, component, "Normalize", "canonicalize node")
			}
			first, wasFull := fullContent[node.ID]
			if !wasFull {
				// First occurrence was a stub; this one defines the content.
				fullContent[node.ID] = canonical
				full := node.Entity()
				full.OwnedChildren = existing.OwnedChildren
				full.ReferencedIDs = existing.ReferencedIDs
				snap.entities[node.ID] = full
				recordEdge(snap, parent, node.ID, relationship)
				return visitItems(snap, node, depth, visit)
			}
			if string(first) != string(canonical) {
				return errors.WrapStructural(errors.ErrDuplicateID, component, "Normalize",
					fmt.Sprintf("id %s appears twice with different content", node.ID))
			}
			// Identical content: a multi-reference, recorded once.
			recordEdge(snap, parent, node.ID, relationship)
			return nil
		}

		snap.entities[node.ID] = node.Entity()
		if !node.IsStub() {
			canonical, err := json.Marshal(node)
			if err != nil {
				return errors.WrapStructural(err, component, "Normalize", "canonicalize node")
			}
			fullContent[node.ID] = canonical
		}
		recordEdge(snap, parent, node.ID, relationship)
		return visitItems(snap, node, depth, visit)
	}

	if err := visit(doc, nil, 0); err != nil {
		return nil, err
	}
	if err := snap.validateReferenceGraph(); err != nil {
		return nil, err
	}
	return snap, nil
}

func visitItems(snap *Snapshot, node *resource.Node, depth int,
	visit func(*resource.Node, *resource.Node, int) error) error {
	for _, item := range node.Items {
		if err := visit(item, node, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// recordEdge appends the child to the appropriate relation list of its parent
// and keeps the derived indices consistent.
func recordEdge(snap *Snapshot, parent *resource.Node, childID string, relationship grammar.RelationshipType) {
	if parent == nil {
		return
	}
	parentEntity := snap.entities[parent.ID]
	switch relationship {
	case grammar.Ownership:
		if !parentEntity.OwnsID(childID) {
			parentEntity.OwnedChildren = append(parentEntity.OwnedChildren, childID)
			snap.parents[childID] = parent.ID
		}
	case grammar.Reference:
		if !parentEntity.ReferencesID(childID) {
			parentEntity.ReferencedIDs = append(parentEntity.ReferencedIDs, childID)
			snap.addRef(childID, parent.ID)
		}
	}
}

// validateReferenceGraph rejects cycles in the reference graph and enforces
// the configured depth limit.
func (s *Snapshot) validateReferenceGraph() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(s.entities))
	deepest := make(map[string]int, len(s.entities))

	var descend func(id string, depth int) error
	descend = func(id string, depth int) error {
		if depth > s.maxDepth {
			return errors.WrapStructural(errors.ErrDepthExceeded, component, "Normalize",
				fmt.Sprintf("reference graph deeper than %d", s.maxDepth))
		}
		switch color[id] {
		case gray:
			return errors.WrapStructural(errors.ErrCycleDetected, component, "Normalize",
				fmt.Sprintf("reference cycle through %s", id))
		case black:
			// A node first reached shallowly must be re-measured when a
			// longer path enters it, or the paths through it would evade
			// the depth bound.
			if depth <= deepest[id] {
				return nil
			}
		}
		deepest[id] = depth
		color[id] = gray
		if e, ok := s.entities[id]; ok {
			for _, ref := range e.ReferencedIDs {
				if err := descend(ref, depth+1); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range s.entities {
		// Restart only from unvisited nodes; depth is re-measured from each
		// reference root.
		if color[id] == white && len(s.refs[id]) == 0 {
			if err := descend(id, 0); err != nil {
				return err
			}
		}
	}
	for id := range s.entities {
		if color[id] == white {
			if err := descend(id, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// Denormalize rebuilds the nested document form rooted at rootID. Reference
// children are re-embedded in place by value, so the produced document is
// self-contained. At the configured depth limit it emits a truncation stub
// instead of recursing further, so it terminates on any input.
func (s *Snapshot) Denormalize(rootID string) (*resource.Node, error) {
	if _, ok := s.entities[rootID]; !ok {
		return nil, errors.WrapStructural(errors.ErrNotFound, component, "Denormalize",
			fmt.Sprintf("resolve entity %s", rootID))
	}
	return s.buildNode(rootID, 0), nil
}

func (s *Snapshot) buildNode(id string, depth int) *resource.Node {
	e, live := s.entities[id]
	if !live {
		// Dangling reference: keep the id so the document stays readable.
		return &resource.Node{ID: id}
	}
	if depth >= s.maxDepth {
		return &resource.Node{ID: id, Kind: e.Kind, Truncated: true}
	}

	node := &resource.Node{
		ID:   e.ID,
		Kind: e.Kind,
	}
	if e.Behaviors != nil {
		node.Behaviors = append([]string(nil), e.Behaviors...)
	}
	if e.Attributes != nil {
		clone := e.Clone()
		node.Attributes = clone.Attributes
	}
	for _, child := range e.OwnedChildren {
		node.Items = append(node.Items, s.buildNode(child, depth+1))
	}
	for _, ref := range e.ReferencedIDs {
		node.Items = append(node.Items, s.buildNode(ref, depth+1))
	}
	return node
}
