package behavior

import (
	"fmt"

	"github.com/c360/archivegraph/types/resource"
)

// Issue is one validation finding, either blocking (error) or advisory
// (warning).
type Issue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Behavior string   `json:"behavior,omitempty"`
	Group    string   `json:"group,omitempty"`
	Related  []string `json:"related,omitempty"`
}

// Issue codes.
const (
	CodeInvalidForKind    = "invalid_for_kind"
	CodeDisjointConflict  = "disjoint_conflict"
	CodeInheritedConflict = "inherited_conflict"
	CodeUnmetRequirement  = "unmet_requirement"
)

// Result is the outcome of validating an entity's behavior tags. Errors
// block the tag mutation; warnings never do.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Options supplies the validation context beyond the entity's own tags.
type Options struct {
	ParentKind      resource.Kind
	ParentBehaviors []string
	// Attributes of the entity being validated, consulted for soft
	// preconditions such as auto-advance implying timed content.
	Attributes map[string]any
}

// Validate checks tags for kind against the validity matrix, the disjoint
// sets, and inheritance from the parent. It never returns a Go error: a UI
// runs it on every edit and renders all findings at once.
func Validate(kind resource.Kind, tags []string, opts Options) Result {
	result := Result{Valid: true}

	for _, tag := range tags {
		if !IsValidForKind(tag, kind) {
			result.Errors = append(result.Errors, Issue{
				Code:     CodeInvalidForKind,
				Behavior: tag,
				Message:  fmt.Sprintf("behavior %q is not valid for kind %q", tag, kind),
				Related:  ValidBehaviorsForKind(kind),
			})
		}
	}

	for _, conflict := range FindConflicts(tags) {
		result.Errors = append(result.Errors, Issue{
			Code:    CodeDisjointConflict,
			Group:   conflict.Group,
			Related: conflict.Behaviors,
			Message: fmt.Sprintf("behaviors %v in group %q are mutually exclusive", conflict.Behaviors, conflict.Group),
		})
	}

	// An inherited tag landing in the same disjoint set as a local tag is
	// advisory only: the local tag stays effective.
	for _, inherited := range InheritedBehaviors(kind, opts.ParentKind, opts.ParentBehaviors) {
		set, ok := DisjointSetFor(inherited)
		if !ok {
			continue
		}
		for _, local := range tags {
			if local == inherited {
				continue
			}
			localSet, ok := DisjointSetFor(local)
			if ok && localSet.Name == set.Name {
				result.Warnings = append(result.Warnings, Issue{
					Code:     CodeInheritedConflict,
					Group:    set.Name,
					Behavior: local,
					Related:  []string{inherited},
					Message: fmt.Sprintf("inherited behavior %q conflicts with local %q in group %q; local kept",
						inherited, local, set.Name),
				})
			}
		}
	}

	// auto-advance implies timed content.
	for _, tag := range tags {
		if tag != AutoAdvance {
			continue
		}
		if _, ok := opts.Attributes["duration"]; !ok {
			result.Warnings = append(result.Warnings, Issue{
				Code:     CodeUnmetRequirement,
				Behavior: AutoAdvance,
				Message:  "auto-advance expects timed content but no duration attribute is set",
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
