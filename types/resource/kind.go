// Package resource provides types for archival media resource records and the
// nested document form they normalize from. Entity records keep ownership and
// reference relations in separate lists so a reference can never be treated as
// cascade-deletable by accident.
package resource

import "encoding/json"

// Kind represents the resource kind of an entity in the hierarchy grammar.
// This enum provides type-safe kind values for containment validation.
type Kind string

const (
	// KindCollection is a reference-only container. It groups other
	// collections and manifests without owning them.
	KindCollection Kind = "collection"

	// KindManifest is an atomic publishable unit. It exclusively owns its
	// canvases and ranges, and is meaningful with no parent at all.
	KindManifest Kind = "manifest"

	// KindCanvas is a sub-unit owned by exactly one manifest, e.g. one page
	// or surface. It may additionally be referenced by ranges.
	KindCanvas Kind = "canvas"

	// KindRange is a navigational grouping owned by one manifest that
	// references, rather than owns, the canvases and ranges it lists.
	KindRange Kind = "range"

	// KindAnnotation is an annotation-bearing sub-part owned by a canvas,
	// holding content or commentary.
	KindAnnotation Kind = "annotation"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// MarshalJSON implements json.Marshaler to ensure Kind serializes as a string.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(k))
}

// UnmarshalJSON implements json.Unmarshaler to deserialize Kind from string.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = Kind(s)
	return nil
}

// IsValid checks if the Kind is one of the defined constants.
func (k Kind) IsValid() bool {
	switch k {
	case KindCollection, KindManifest, KindCanvas, KindRange, KindAnnotation:
		return true
	default:
		return false
	}
}

// AllKinds returns every kind participating in the hierarchy grammar, in
// declaration order.
func AllKinds() []Kind {
	return []Kind{KindCollection, KindManifest, KindCanvas, KindRange, KindAnnotation}
}
