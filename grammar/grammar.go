// Package grammar is the static type-compatibility table for the resource
// hierarchy: which kinds may contain which other kinds, and whether that
// containment owns or merely references the child. Pure lookups, no state.
package grammar

import "github.com/c360/archivegraph/types/resource"

// RelationshipType classifies how a parent kind holds a child kind.
type RelationshipType string

const (
	// Ownership is single-owner containment; deleting the owner cascades to
	// the owned entity.
	Ownership RelationshipType = "ownership"
	// Reference is many-to-many association; removing a reference never
	// deletes the referenced entity.
	Reference RelationshipType = "reference"
	// None means no containment is possible (no parent kind given).
	None RelationshipType = "none"
)

// validChildren is the containment table. A pair absent from this table is
// not a valid containment at all.
var validChildren = map[resource.Kind][]resource.Kind{
	resource.KindCollection: {resource.KindCollection, resource.KindManifest},
	resource.KindManifest:   {resource.KindCanvas, resource.KindRange},
	resource.KindCanvas:     {resource.KindAnnotation},
	resource.KindRange:      {resource.KindCanvas, resource.KindRange},
	resource.KindAnnotation: {},
}

// RelationshipTypeFor returns how parentKind holds childKind. It returns None
// when there is no parent kind. Pairs not explicitly classified as reference
// default to ownership, so new or unknown kinds fail closed into the stricter
// relationship.
func RelationshipTypeFor(parentKind, childKind resource.Kind) RelationshipType {
	if parentKind == "" {
		return None
	}

	switch parentKind {
	case resource.KindCollection:
		// Collections group without owning.
		return Reference
	case resource.KindRange:
		// Ranges navigate canvases they do not own.
		return Reference
	default:
		return Ownership
	}
}

// ValidChildKinds returns the set of kinds parentKind may contain, in
// declaration order. Unknown parent kinds contain nothing.
func ValidChildKinds(parentKind resource.Kind) []resource.Kind {
	kinds, ok := validChildren[parentKind]
	if !ok {
		return nil
	}
	return append([]resource.Kind(nil), kinds...)
}

// IsValidChild reports whether parentKind may contain childKind.
func IsValidChild(parentKind, childKind resource.Kind) bool {
	for _, k := range validChildren[parentKind] {
		if k == childKind {
			return true
		}
	}
	return false
}

// CanHaveMultipleParents reports whether a kind may appear under more than
// one reference-holder. True only for kinds whose containment into a parent
// is by reference: manifests (held by collections) and canvases (held by
// ranges). A collection reached via reference is still single-parented in
// the ownership sense.
func CanHaveMultipleParents(kind resource.Kind) bool {
	return kind == resource.KindManifest || kind == resource.KindCanvas
}

// IsStandalone reports whether a kind is meaningful with no parent at all.
func IsStandalone(kind resource.Kind) bool {
	return kind == resource.KindManifest || kind == resource.KindCollection
}
