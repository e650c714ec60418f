// Package behavior validates presentation-hint tags against a per-kind
// validity matrix, mutually exclusive tag groups (disjoint sets), and
// parent-to-child inheritance rules. Validation always returns a result
// object so it can run continuously while a document is being edited.
package behavior

import "github.com/c360/archivegraph/types/resource"

// Behavior tags known to the validity matrix.
const (
	Individuals   = "individuals"
	Paged         = "paged"
	Continuous    = "continuous"
	AutoAdvance   = "auto-advance"
	NoAutoAdvance = "no-auto-advance"
	Repeat        = "repeat"
	NoRepeat      = "no-repeat"
	ThumbnailNav  = "thumbnail-nav"
	NoNav         = "no-nav"
	Unordered     = "unordered"
	Sequence      = "sequence"
	Together      = "together"
	MultiPart     = "multi-part"
	FacingPages   = "facing-pages"
	NonPaged      = "non-paged"
	Hidden        = "hidden"
)

// DisjointSet is a named group of mutually exclusive behaviors. At most one
// member may be present on an entity; Default applies when none is.
type DisjointSet struct {
	Name    string
	Members []string
	Default string // empty when the group has no implicit default
}

// disjointSets in declaration order; conflict reporting follows this order,
// not input order, for determinism.
var disjointSets = []DisjointSet{
	{Name: "layout", Members: []string{Individuals, Paged, Continuous}, Default: Individuals},
	{Name: "temporal-advance", Members: []string{NoAutoAdvance, AutoAdvance}, Default: NoAutoAdvance},
	{Name: "repeat", Members: []string{NoRepeat, Repeat}, Default: NoRepeat},
	{Name: "nav", Members: []string{ThumbnailNav, NoNav}},
}

// validityMatrix lists the behaviors legal for each resource kind.
var validityMatrix = map[resource.Kind][]string{
	resource.KindCollection: {
		Individuals, Paged, Continuous,
		AutoAdvance, NoAutoAdvance,
		Repeat, NoRepeat,
		Unordered, Together, MultiPart,
	},
	resource.KindManifest: {
		Individuals, Paged, Continuous,
		AutoAdvance, NoAutoAdvance,
		Unordered,
	},
	resource.KindCanvas: {
		AutoAdvance, NoAutoAdvance,
		FacingPages, NonPaged,
	},
	resource.KindRange: {
		Individuals, Paged, Continuous,
		AutoAdvance, NoAutoAdvance,
		ThumbnailNav, NoNav,
		Sequence,
	},
	resource.KindAnnotation: {Hidden},
}

// inheritance maps child kind to the parent kinds it inherits behaviors
// from. Canvases and ranges inherit from their manifest; collections inherit
// from an enclosing collection; manifests inherit from nothing.
var inheritance = map[resource.Kind][]resource.Kind{
	resource.KindCanvas:     {resource.KindManifest},
	resource.KindRange:      {resource.KindManifest},
	resource.KindCollection: {resource.KindCollection},
}

// IsValidForKind reports whether the behavior tag is legal for the kind.
func IsValidForKind(tag string, kind resource.Kind) bool {
	for _, valid := range validityMatrix[kind] {
		if valid == tag {
			return true
		}
	}
	return false
}

// ValidBehaviorsForKind returns the behaviors legal for the kind, in matrix
// declaration order.
func ValidBehaviorsForKind(kind resource.Kind) []string {
	valid, ok := validityMatrix[kind]
	if !ok {
		return nil
	}
	return append([]string(nil), valid...)
}

// DisjointSetFor returns the disjoint set the tag belongs to, or false when
// the tag is not a member of any group.
func DisjointSetFor(tag string) (DisjointSet, bool) {
	for _, set := range disjointSets {
		for _, member := range set.Members {
			if member == tag {
				return set, true
			}
		}
	}
	return DisjointSet{}, false
}

// DefaultBehavior returns the default member of the named group, or false
// when the group is unknown or has no default.
func DefaultBehavior(group string) (string, bool) {
	for _, set := range disjointSets {
		if set.Name == group {
			return set.Default, set.Default != ""
		}
	}
	return "", false
}

// Conflict describes two or more members of one disjoint set present in the
// same tag set.
type Conflict struct {
	Group     string   `json:"group"`
	Behaviors []string `json:"behaviors"`
}

// FindConflicts returns one conflict per disjoint set with two or more
// members present in tags. Conflicts follow group declaration order.
func FindConflicts(tags []string) []Conflict {
	var conflicts []Conflict
	for _, set := range disjointSets {
		var present []string
		for _, member := range set.Members {
			for _, tag := range tags {
				if tag == member {
					present = append(present, member)
					break
				}
			}
		}
		if len(present) >= 2 {
			conflicts = append(conflicts, Conflict{Group: set.Name, Behaviors: present})
		}
	}
	return conflicts
}

// Inherits reports whether childKind inherits behaviors from parentKind.
func Inherits(childKind, parentKind resource.Kind) bool {
	for _, from := range inheritance[childKind] {
		if from == parentKind {
			return true
		}
	}
	return false
}

// InheritedBehaviors filters parentTags down to those both permitted by the
// inheritance table and valid for childKind, preserving parent order.
func InheritedBehaviors(childKind, parentKind resource.Kind, parentTags []string) []string {
	if !Inherits(childKind, parentKind) {
		return nil
	}
	var inherited []string
	for _, tag := range parentTags {
		if IsValidForKind(tag, childKind) {
			inherited = append(inherited, tag)
		}
	}
	return inherited
}

// ResolveEffective returns the deduplicated union of own and inherited tags,
// preserving first-seen order. Own tags come first, so a local tag takes
// precedence over an inherited duplicate.
func ResolveEffective(kind resource.Kind, ownTags []string, parentKind resource.Kind, parentTags []string) []string {
	seen := make(map[string]bool)
	var effective []string
	for _, tag := range ownTags {
		if !seen[tag] {
			seen[tag] = true
			effective = append(effective, tag)
		}
	}
	for _, tag := range InheritedBehaviors(kind, parentKind, parentTags) {
		if !seen[tag] {
			seen[tag] = true
			effective = append(effective, tag)
		}
	}
	return effective
}
