// Package fm is the typed, read-only problem model the five reasoning
// engines consume: features, attributes, contexts, constraints,
// preferences, and the initial configuration described in SPEC_FULL.md §3.
//
// A Problem is built once by the orchestrator (after the external
// constraint translator has turned source strings into formulas) and is
// never mutated again — "no mutable shared state outside the solver".
package fm

import (
	"fmt"
	"sort"

	"github.com/gitrdm/hyvarrec/internal/smt"
)

// FormulaFunc builds a Z3 term inside the given session. Constraints,
// context-constraints, and preferences all carry one: it is the
// already-translated formula the external constraint translator produced,
// expressed against whichever Session the encoder happens to be using.
type FormulaFunc func(s *smt.Session) smt.Term

// Attribute is a numeric datum attached to a feature (SPEC_FULL.md §3).
type Attribute struct {
	ID      string
	Parent  string // feature id; must be declared
	Min     int
	Max     int
	Initial *int // nil when the input omits an initial value
}

// Context is an environment variable the FM reasons about.
type Context struct {
	ID      string
	Min     int
	Max     int
	Initial *int
}

// Constraint is a formula over feature/attribute/context variables, plus
// (for explain mode reporting) the original source string it came from.
type Constraint struct {
	Source  string
	Formula FormulaFunc
}

// ContextConstraint restricts the admissible context space for validate and
// check-interface.
type ContextConstraint struct {
	Source  string
	Formula FormulaFunc
}

// Preference is a formula to maximize; ordering is the slice order.
type Preference struct {
	Formula FormulaFunc
}

// Interval is an inclusive [Lo,Hi] range over the time context.
type Interval struct {
	Lo, Hi int
}

// OptionalFeatureSchedule maps a feature id to the time intervals at which
// it is a candidate for dead/false-optional analysis.
type OptionalFeatureSchedule map[string][]Interval

// InitialConfiguration is the caller-supplied starting point: nothing
// asserts it actually satisfies the FM.
type InitialConfiguration struct {
	SelectedFeatures map[string]bool
	AttributeValues  map[string]int
	ContextValues    map[string]int
}

// Problem is the complete, immutable FM reasoning instance.
type Problem struct {
	// Features is the full set of feature ids: those declared by the
	// input plus any the constraint translator introduced while parsing
	// constraint/preference source strings
	// (Invariant 4 of SPEC_FULL.md §3).
	Features []string

	// FeaturesAsBoolean selects the Boolean-variable encoding instead of
	// the default 0/1-bounded-integer encoding (a mode flag, global to
	// one run).
	FeaturesAsBoolean bool

	Attributes map[string]Attribute
	Contexts   map[string]Context

	Constraints        []Constraint
	ContextConstraints []ContextConstraint

	// Preferences are caller-supplied, ranked strictly above the default
	// preferences of SPEC_FULL.md §4.1 and (when present) the injected
	// smt_preferences, which rank above those.
	Preferences []Preference

	OptionalFeatures OptionalFeatureSchedule

	// TimeContext names the distinguished integer context used by
	// feature analysis; empty means the caller supplied none.
	TimeContext string

	Initial InitialConfiguration
}

// HasFeature reports whether id is a declared (or translator-introduced)
// feature of this problem.
func (p *Problem) HasFeature(id string) bool {
	for _, f := range p.Features {
		if f == id {
			return true
		}
	}
	return false
}

// NonInitialFeatures returns the features not in the initial configuration,
// in Problem.Features order — the set SPEC_FULL.md §4.1's default
// preference 3 minimizes additions from.
func (p *Problem) NonInitialFeatures() []string {
	var out []string
	for _, f := range p.Features {
		if !p.Initial.SelectedFeatures[f] {
			out = append(out, f)
		}
	}
	return out
}

// InitialFeatureList returns the initially-selected features in
// Problem.Features order, for default preference 1.
func (p *Problem) InitialFeatureList() []string {
	var out []string
	for _, f := range p.Features {
		if p.Initial.SelectedFeatures[f] {
			out = append(out, f)
		}
	}
	return out
}

// AttributesWithInitial returns the attribute ids that carry an initial
// value, sorted for deterministic iteration, for default preferences 2
// and 4.
func (p *Problem) AttributesWithInitial() []string {
	var out []string
	for id, a := range p.Attributes {
		if a.Initial != nil {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SortedAttributeIDs returns every declared attribute id in sorted order,
// for code that must iterate Attributes deterministically.
func (p *Problem) SortedAttributeIDs() []string {
	out := make([]string, 0, len(p.Attributes))
	for id := range p.Attributes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SortedContextIDs returns every declared context id in sorted order.
func (p *Problem) SortedContextIDs() []string {
	out := make([]string, 0, len(p.Contexts))
	for id := range p.Contexts {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Validate checks the well-formedness invariants of SPEC_FULL.md §3.
// Every engine should call this before encoding; violations are
// Input-shape errors (SPEC_FULL.md §7) and must abort before any solving.
func (p *Problem) Validate() error {
	for id, a := range p.Attributes {
		if !p.HasFeature(a.Parent) {
			return fmt.Errorf("fm: attribute %q has undeclared parent feature %q", id, a.Parent)
		}
		if a.Min > a.Max {
			return fmt.Errorf("fm: attribute %q has min %d > max %d", id, a.Min, a.Max)
		}
		if a.Initial != nil && (*a.Initial < a.Min || *a.Initial > a.Max) {
			return fmt.Errorf("fm: attribute %q initial value %d outside [%d,%d]", id, *a.Initial, a.Min, a.Max)
		}
	}
	for id, c := range p.Contexts {
		if c.Min > c.Max {
			return fmt.Errorf("fm: context %q has min %d > max %d", id, c.Min, c.Max)
		}
		if c.Initial != nil && (*c.Initial < c.Min || *c.Initial > c.Max) {
			return fmt.Errorf("fm: context %q initial value %d outside [%d,%d]", id, *c.Initial, c.Min, c.Max)
		}
	}
	if p.FeaturesAsBoolean {
		for _, c := range p.Contexts {
			if c.Min < 0 || c.Max < 0 {
				return fmt.Errorf("fm: context ranges must be non-negative")
			}
		}
	}
	return nil
}
