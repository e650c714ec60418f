// Package store holds the flat, normalized form of a resource document: a map
// from id to entity record plus derived parent and reference indices. Every
// mutation is a pure function from one immutable snapshot to the next, with
// structural sharing so an edit never deep-copies the whole graph. A rejected
// mutation returns the previous snapshot unchanged together with a structural
// error.
package store

import (
	"sort"

	"github.com/c360/archivegraph/types/resource"
)

// Snapshot is one immutable, consistent state of the store. Mutating methods
// return a new snapshot; entities held by a snapshot must be treated as
// read-only and are cloned before any change.
type Snapshot struct {
	entities map[string]*resource.Entity
	parents  map[string]string   // owned child id -> owner id
	refs     map[string][]string // target id -> live referrer ids
	maxDepth int
}

// NewSnapshot creates an empty snapshot. A maxDepth of zero or less selects
// the package default used to bound reference-graph depth.
func NewSnapshot(maxDepth int) *Snapshot {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxRefDepth
	}
	return &Snapshot{
		entities: make(map[string]*resource.Entity),
		parents:  make(map[string]string),
		refs:     make(map[string][]string),
		maxDepth: maxDepth,
	}
}

// DefaultMaxRefDepth bounds the reference graph depth. It exists to bound
// recursive traversal cost, not as a domain rule.
const DefaultMaxRefDepth = 20

// clone shallow-copies the index maps so the new snapshot can diverge while
// sharing untouched entity records with its predecessor.
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		entities: make(map[string]*resource.Entity, len(s.entities)),
		parents:  make(map[string]string, len(s.parents)),
		refs:     make(map[string][]string, len(s.refs)),
		maxDepth: s.maxDepth,
	}
	for id, e := range s.entities {
		next.entities[id] = e
	}
	for id, p := range s.parents {
		next.parents[id] = p
	}
	for id, r := range s.refs {
		next.refs[id] = r
	}
	return next
}

// Len returns the number of live entities.
func (s *Snapshot) Len() int {
	return len(s.entities)
}

// MaxRefDepth returns the configured reference depth limit.
func (s *Snapshot) MaxRefDepth() int {
	return s.maxDepth
}

// Entity returns the live entity with the given id. The record must be
// treated as read-only.
func (s *Snapshot) Entity(id string) (*resource.Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// EntityType returns the kind of the live entity with the given id.
func (s *Snapshot) EntityType(id string) (resource.Kind, bool) {
	e, ok := s.entities[id]
	if !ok {
		return "", false
	}
	return e.Kind, true
}

// IDs returns every live id, sorted for determinism.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParentID returns the ownership parent of id, if any. Reference holders are
// not parents in this sense.
func (s *Snapshot) ParentID(id string) (string, bool) {
	p, ok := s.parents[id]
	return p, ok
}

// ChildIDs returns the ordered children of id: owned children first, then
// referenced ids.
func (s *Snapshot) ChildIDs(id string) []string {
	e, ok := s.entities[id]
	if !ok {
		return nil
	}
	return e.Children()
}

// EntitiesByType returns every live entity of the given kind, sorted by id
// for determinism.
func (s *Snapshot) EntitiesByType(kind resource.Kind) []*resource.Entity {
	var matched []*resource.Entity
	for _, e := range s.entities {
		if e.Kind == kind {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

// Ancestors returns the ownership chain from id's parent up to the root,
// nearest first.
func (s *Snapshot) Ancestors(id string) []string {
	var ancestors []string
	seen := make(map[string]bool)
	for {
		parent, ok := s.parents[id]
		if !ok || seen[parent] {
			return ancestors
		}
		seen[parent] = true
		ancestors = append(ancestors, parent)
		id = parent
	}
}

// Descendants returns every entity owned, directly or transitively, by id in
// pre-order. Reference edges are not descent.
func (s *Snapshot) Descendants(id string) []string {
	var descendants []string
	var collect func(string)
	collect = func(current string) {
		e, ok := s.entities[current]
		if !ok {
			return
		}
		for _, child := range e.OwnedChildren {
			descendants = append(descendants, child)
			collect(child)
		}
	}
	collect(id)
	return descendants
}

// referrersOf returns live entities whose reference list includes id.
func (s *Snapshot) referrersOf(id string) []string {
	return append([]string(nil), s.refs[id]...)
}

// refDepthFrom measures how deep the reference graph descends below id.
func (s *Snapshot) refDepthFrom(id string, seen map[string]bool) int {
	if seen[id] {
		return 0
	}
	seen[id] = true
	defer delete(seen, id)

	e, ok := s.entities[id]
	if !ok {
		return 0
	}
	deepest := 0
	for _, ref := range e.ReferencedIDs {
		if d := s.refDepthFrom(ref, seen) + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// referenceReaches reports whether target is reachable from id by following
// reference edges. Used to reject cycles before they are committed.
func (s *Snapshot) referenceReaches(id, target string, seen map[string]bool) bool {
	if id == target {
		return true
	}
	if seen[id] {
		return false
	}
	seen[id] = true

	e, ok := s.entities[id]
	if !ok {
		return false
	}
	for _, ref := range e.ReferencedIDs {
		if s.referenceReaches(ref, target, seen) {
			return true
		}
	}
	return false
}

// addRef records a live reference edge in the incoming index.
func (s *Snapshot) addRef(target, referrer string) {
	for _, r := range s.refs[target] {
		if r == referrer {
			return
		}
	}
	s.refs[target] = append(append([]string(nil), s.refs[target]...), referrer)
}

// dropRef removes one reference edge from the incoming index.
func (s *Snapshot) dropRef(target, referrer string) {
	current := s.refs[target]
	next := make([]string, 0, len(current))
	for _, r := range current {
		if r != referrer {
			next = append(next, r)
		}
	}
	if len(next) == 0 {
		delete(s.refs, target)
		return
	}
	s.refs[target] = next
}
