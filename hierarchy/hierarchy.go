// Package hierarchy validates containment against the type grammar and runs
// traversal queries over nested documents: find-by-kind, path-to-node,
// reference maps, and depth/size statistics. Traversals are bounded by a
// configurable depth limit and report truncation instead of failing, so
// pathological documents degrade gracefully.
package hierarchy

import (
	"fmt"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/grammar"
	"github.com/c360/archivegraph/types/resource"
)

// DefaultMaxDepth bounds recursive traversal cost. It is generous; real
// documents sit well under it.
const DefaultMaxDepth = 100

// ContainmentError reports an invalid (parent kind, child kind) pair along
// with the kinds the parent may actually contain.
type ContainmentError struct {
	AttemptedChild resource.Kind
	ParentKind     resource.Kind
	ValidChildren  []resource.Kind
}

// Error implements the error interface
func (e *ContainmentError) Error() string {
	return fmt.Sprintf("kind %q cannot be contained by %q (valid children: %v)",
		e.AttemptedChild, e.ParentKind, e.ValidChildren)
}

// Unwrap returns the underlying sentinel for errors.Is checks.
func (e *ContainmentError) Unwrap() error {
	return errors.ErrInvalidContainment
}

// ValidateContainment checks the (parent kind, child kind) pair against the
// type grammar. On rejection the error carries the set of valid child kinds
// so a caller can name the legal alternatives.
func ValidateContainment(parentKind, childKind resource.Kind) error {
	if grammar.IsValidChild(parentKind, childKind) {
		return nil
	}
	return &ContainmentError{
		AttemptedChild: childKind,
		ParentKind:     parentKind,
		ValidChildren:  grammar.ValidChildKinds(parentKind),
	}
}

// Grammar pass-throughs, so collaborators consuming the hierarchy surface
// never need to import the grammar table directly.

// RelationshipTypeFor returns how parentKind holds childKind.
func RelationshipTypeFor(parentKind, childKind resource.Kind) grammar.RelationshipType {
	return grammar.RelationshipTypeFor(parentKind, childKind)
}

// CanHaveMultipleParents reports whether a kind may appear under more than
// one reference-holder.
func CanHaveMultipleParents(kind resource.Kind) bool {
	return grammar.CanHaveMultipleParents(kind)
}

// IsStandalone reports whether a kind is meaningful with no parent.
func IsStandalone(kind resource.Kind) bool {
	return grammar.IsStandalone(kind)
}

// IsValidChild reports whether parentKind may contain childKind.
func IsValidChild(parentKind, childKind resource.Kind) bool {
	return grammar.IsValidChild(parentKind, childKind)
}

// ValidChildKinds returns the kinds parentKind may contain.
func ValidChildKinds(parentKind resource.Kind) []resource.Kind {
	return grammar.ValidChildKinds(parentKind)
}

// Engine runs traversal queries with a fixed depth limit.
type Engine struct {
	maxDepth int
}

// NewEngine creates a traversal engine. A maxDepth of zero or less selects
// DefaultMaxDepth.
func NewEngine(maxDepth int) *Engine {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Engine{maxDepth: maxDepth}
}

// MaxDepth returns the configured traversal depth limit.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// walk visits nodes pre-order up to the depth limit. visit returning false
// stops the walk early. The returned flag reports whether any subtree was cut
// off by the limit.
func (e *Engine) walk(node *resource.Node, depth int, visit func(*resource.Node, int) bool) (truncated, stopped bool) {
	if node == nil {
		return false, false
	}
	if depth >= e.maxDepth {
		return true, false
	}
	if !visit(node, depth) {
		return false, true
	}
	for _, item := range node.Items {
		t, s := e.walk(item, depth+1, visit)
		truncated = truncated || t
		if s {
			return truncated, true
		}
	}
	return truncated, false
}

// FindAllOfType returns every node of the given kind in pre-order, including
// the root itself if it matches. The flag reports depth-limit truncation.
func (e *Engine) FindAllOfType(root *resource.Node, kind resource.Kind) ([]*resource.Node, bool) {
	var found []*resource.Node
	truncated, _ := e.walk(root, 0, func(n *resource.Node, _ int) bool {
		if n.Kind == kind {
			found = append(found, n)
		}
		return true
	})
	return found, truncated
}

// FindNodeByID returns the first node with the given id, or nil.
func (e *Engine) FindNodeByID(root *resource.Node, id string) *resource.Node {
	var found *resource.Node
	e.walk(root, 0, func(n *resource.Node, _ int) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// PathToNode returns the ordered sequence of nodes from root to the node
// with the given id, or an empty path when the id is absent.
func (e *Engine) PathToNode(root *resource.Node, id string) []*resource.Node {
	var path []*resource.Node
	var descend func(node *resource.Node, depth int) bool
	descend = func(node *resource.Node, depth int) bool {
		if node == nil || depth >= e.maxDepth {
			return false
		}
		path = append(path, node)
		if node.ID == id {
			return true
		}
		for _, item := range node.Items {
			if descend(item, depth+1) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if descend(root, 0) {
		return path
	}
	return nil
}

// FindCanvasParent returns the manifest that owns the given canvas: a
// single-hop ownership lookup, not a general ancestor search.
func (e *Engine) FindCanvasParent(root *resource.Node, canvasID string) *resource.Node {
	var owner *resource.Node
	e.walk(root, 0, func(n *resource.Node, _ int) bool {
		if n.Kind != resource.KindManifest {
			return true
		}
		for _, item := range n.Items {
			if item.ID == canvasID && item.Kind == resource.KindCanvas {
				owner = n
				return false
			}
		}
		return true
	})
	return owner
}

// FindCollectionsContaining returns every collection, however deeply nested,
// that lists the given id among its items.
func (e *Engine) FindCollectionsContaining(root *resource.Node, id string) []*resource.Node {
	var collections []*resource.Node
	e.walk(root, 0, func(n *resource.Node, _ int) bool {
		if n.Kind != resource.KindCollection {
			return true
		}
		for _, item := range n.Items {
			if item.ID == id {
				collections = append(collections, n)
				break
			}
		}
		return true
	})
	return collections
}

// BuildReferenceMap maps each referenced target id to the ids of the nodes
// referencing it. Only reference relationships produce entries; ownership
// edges are not references. The flag reports depth-limit truncation.
func (e *Engine) BuildReferenceMap(root *resource.Node) (map[string][]string, bool) {
	refs := make(map[string][]string)
	truncated, _ := e.walk(root, 0, func(n *resource.Node, _ int) bool {
		for _, item := range n.Items {
			if grammar.RelationshipTypeFor(n.Kind, item.Kind) == grammar.Reference {
				refs[item.ID] = append(refs[item.ID], n.ID)
			}
		}
		return true
	})
	return refs, truncated
}

// CountResourcesByType tallies nodes per kind. The flag reports depth-limit
// truncation.
func (e *Engine) CountResourcesByType(root *resource.Node) (map[resource.Kind]int, bool) {
	counts := make(map[resource.Kind]int)
	truncated, _ := e.walk(root, 0, func(n *resource.Node, _ int) bool {
		counts[n.Kind]++
		return true
	})
	return counts, truncated
}

// TreeDepth returns the ownership depth of the tree: 1 for a childless node,
// incrementing per ownership level only. Reference children do not add
// depth. The flag reports depth-limit truncation.
func (e *Engine) TreeDepth(root *resource.Node) (int, bool) {
	var measure func(node *resource.Node, depth int) (int, bool)
	measure = func(node *resource.Node, depth int) (int, bool) {
		if node == nil {
			return 0, false
		}
		if depth >= e.maxDepth {
			return 0, true
		}
		deepest := 1
		truncated := false
		for _, item := range node.Items {
			if grammar.RelationshipTypeFor(node.Kind, item.Kind) != grammar.Ownership {
				continue
			}
			d, t := measure(item, depth+1)
			truncated = truncated || t
			if d+1 > deepest {
				deepest = d + 1
			}
		}
		return deepest, truncated
	}
	return measure(root, 0)
}
