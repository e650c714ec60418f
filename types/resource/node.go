package resource

import "encoding/json"

// Node is the nested document form of a resource. External documents arrive
// in this shape and are normalized into flat Entity records; denormalization
// rebuilds it with referenced entities re-embedded by value.
type Node struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Behaviors  []string       `json:"behaviors,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Items      []*Node        `json:"items,omitempty"`

	// Truncated marks a stub emitted in place of a subtree that exceeded the
	// configured reference depth limit during denormalization or traversal.
	Truncated bool `json:"truncated,omitempty"`
}

// IsStub reports whether the node is a bare reference stub: an id (and
// optionally a kind) with no content of its own.
func (n *Node) IsStub() bool {
	if n == nil {
		return false
	}
	return len(n.Items) == 0 && len(n.Behaviors) == 0 && len(n.Attributes) == 0 && !n.Truncated
}

// Clone returns a deep copy of the node and its subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := &Node{
		ID:        n.ID,
		Kind:      n.Kind,
		Truncated: n.Truncated,
	}
	if n.Behaviors != nil {
		clone.Behaviors = append([]string(nil), n.Behaviors...)
	}
	if n.Attributes != nil {
		clone.Attributes = cloneAttributes(n.Attributes)
	}
	for _, item := range n.Items {
		clone.Items = append(clone.Items, item.Clone())
	}
	return clone
}

// Entity converts the node's own content (not its subtree) into a flat
// entity record. Relations are filled in by normalization, which knows the
// relationship type of each (parent, child) pair.
func (n *Node) Entity() *Entity {
	if n == nil {
		return nil
	}
	e := &Entity{
		ID:   n.ID,
		Kind: n.Kind,
	}
	if n.Behaviors != nil {
		e.Behaviors = append([]string(nil), n.Behaviors...)
	}
	if n.Attributes != nil {
		e.Attributes = cloneAttributes(n.Attributes)
	}
	return e
}

// MarshalIndent renders the document as indented JSON, the interchange form
// consumed by export and synchronization collaborators.
func (n *Node) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(n, "", "  ")
}
