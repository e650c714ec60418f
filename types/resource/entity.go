package resource

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// Entity is the flat-store record for one resource. Relations are split into
// two explicit lists: OwnedChildren cascade on deletion and have exactly one
// owner; ReferencedIDs are many-to-many and never cascade.
type Entity struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"kind"`
	OwnedChildren []string       `json:"owned_children,omitempty"`
	ReferencedIDs []string       `json:"referenced_ids,omitempty"`
	Behaviors     []string       `json:"behaviors,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`
}

// NewID mints a URI-shaped entity id for resources that arrive without one.
func NewID() string {
	return "urn:uuid:" + uuid.NewString()
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	clone := &Entity{
		ID:   e.ID,
		Kind: e.Kind,
	}
	if e.OwnedChildren != nil {
		clone.OwnedChildren = append([]string(nil), e.OwnedChildren...)
	}
	if e.ReferencedIDs != nil {
		clone.ReferencedIDs = append([]string(nil), e.ReferencedIDs...)
	}
	if e.Behaviors != nil {
		clone.Behaviors = append([]string(nil), e.Behaviors...)
	}
	if e.Attributes != nil {
		clone.Attributes = cloneAttributes(e.Attributes)
	}
	return clone
}

// ContentEquals reports whether two entities carry identical content. It is
// used to distinguish a true duplicate id from a legitimate multi-reference:
// identity of content, not just id.
func (e *Entity) ContentEquals(other *Entity) bool {
	if e == nil || other == nil {
		return e == other
	}
	a, err := json.Marshal(e)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// HasBehavior checks if the entity carries the given behavior tag.
func (e *Entity) HasBehavior(tag string) bool {
	if e == nil {
		return false
	}
	for _, b := range e.Behaviors {
		if b == tag {
			return true
		}
	}
	return false
}

// ReferencesID checks if the entity lists id among its referenced ids.
func (e *Entity) ReferencesID(id string) bool {
	if e == nil {
		return false
	}
	for _, ref := range e.ReferencedIDs {
		if ref == id {
			return true
		}
	}
	return false
}

// OwnsID checks if the entity lists id among its owned children.
func (e *Entity) OwnsID(id string) bool {
	if e == nil {
		return false
	}
	for _, child := range e.OwnedChildren {
		if child == id {
			return true
		}
	}
	return false
}

// Children returns owned children followed by referenced ids, preserving the
// order within each list.
func (e *Entity) Children() []string {
	if e == nil {
		return nil
	}
	children := make([]string, 0, len(e.OwnedChildren)+len(e.ReferencedIDs))
	children = append(children, e.OwnedChildren...)
	children = append(children, e.ReferencedIDs...)
	return children
}

// AttributeValue retrieves an attribute value by key.
// Returns the value and true if found, nil and false if not found.
func AttributeValue(e *Entity, key string) (any, bool) {
	if e == nil || e.Attributes == nil {
		return nil, false
	}
	value, ok := e.Attributes[key]
	return value, ok
}

// AttributeValueTyped retrieves an attribute value with type assertion.
// Returns the typed value and true if found and type matches, zero value and
// false otherwise.
func AttributeValueTyped[T any](e *Entity, key string) (T, bool) {
	var zero T
	value, found := AttributeValue(e, key)
	if !found {
		return zero, false
	}

	typedValue, ok := value.(T)
	if !ok {
		return zero, false
	}

	return typedValue, true
}

func cloneAttributes(attrs map[string]any) map[string]any {
	// JSON round-trip gives a deep copy; attribute payloads are opaque
	// key/value data that always originated as JSON.
	data, err := json.Marshal(attrs)
	if err != nil {
		copied := make(map[string]any, len(attrs))
		for k, v := range attrs {
			copied[k] = v
		}
		return copied
	}
	var clone map[string]any
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := make(map[string]any, len(attrs))
		for k, v := range attrs {
			copied[k] = v
		}
		return copied
	}
	return clone
}
