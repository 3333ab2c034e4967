// Package reconfigure implements the default reasoning mode of
// SPEC_FULL.md §4.1: find a configuration satisfying every constraint,
// pinned to the initial contexts, optimal with respect to a lexicographic
// preference order.
package reconfigure

import (
	"errors"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/encode"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

// Options controls one reconfigure run.
type Options struct {
	// TimeoutMillis bounds the optimize search; zero means no timeout.
	TimeoutMillis int

	// SuppressDefaultPreferences disables the four built-in preferences
	// of SPEC_FULL.md §4.1, leaving only the caller-supplied Preferences
	// (the `--no-default-preferences` flag).
	SuppressDefaultPreferences bool

	// NonIncrementalSolver requests Z3's non-incremental tactic path
	// (the `--non-incremental-solver` flag; see smt.Session.SetNonIncremental).
	NonIncrementalSolver bool
}

// Outcome is the engine's result, independent of the output JSON schema.
type Outcome struct {
	Sat        bool
	Features   []string
	Attributes map[string]int
}

// Run encodes p, applies the preference order, and optimizes. A Z3
// "unknown" verdict (most commonly a timeout) is reported as unsatisfiable
// per SPEC_FULL.md §5's "timeout is observationally unsat" rule.
func Run(p *fm.Problem, opts Options) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := smt.NewOptimizeSession()
	defer s.Close()
	if opts.NonIncrementalSolver {
		s.SetNonIncremental()
	}
	if opts.TimeoutMillis > 0 {
		s.SetTimeoutMillis(opts.TimeoutMillis)
	}

	enc := encode.New(s, p)
	enc.DeclareFeatures()
	enc.DeclareAttributes()
	enc.DeclareContexts()
	enc.PinContextsToInitial()
	enc.AssertConstraints()
	enc.AssertContextConstraints()

	for _, pref := range p.Preferences {
		s.Maximize(pref.Formula(s))
	}
	if !opts.SuppressDefaultPreferences {
		registerDefaultPreferences(s, enc, p)
	}

	result, err := s.Check()
	if err != nil {
		if errors.Is(err, smt.ErrUnknown) {
			return &Outcome{Sat: false}, nil
		}
		return nil, err
	}
	if result == smt.Unsat {
		return &Outcome{Sat: false}, nil
	}

	m := s.Model()
	defer m.Close()

	features := selectedFeatures(m, enc, p)
	return &Outcome{
		Sat:        true,
		Features:   features,
		Attributes: attributeValues(m, enc, p, features),
	}, nil
}

// registerDefaultPreferences installs the four built-in preferences, in
// the priority order SPEC_FULL.md §4.1 specifies (below any caller
// preferences, which were already registered):
//
//  1. maximize the count of initially-selected features kept selected
//  2. maximize the count of attributes matching their initial value
//  3. minimize the count of non-initial features newly selected
//  4. minimize the total displacement of attributes from their initial value
func registerDefaultPreferences(s *smt.Session, enc *encode.Encoder, p *fm.Problem) {
	selectedTerm := func(id string) smt.Term {
		t := enc.FeatureTerm(id)
		if p.FeaturesAsBoolean {
			return t
		}
		return s.Eq(t, s.IntVal(1))
	}

	var keepInitial []smt.Term
	for _, id := range p.InitialFeatureList() {
		keepInitial = append(keepInitial, s.BoolToCount(selectedTerm(id)))
	}
	s.Maximize(s.Sum(keepInitial...))

	var keepAttrs []smt.Term
	for _, id := range p.AttributesWithInitial() {
		a := p.Attributes[id]
		match := s.Eq(enc.AttributeTerm(id), s.IntVal(*a.Initial))
		keepAttrs = append(keepAttrs, s.BoolToCount(match))
	}
	s.Maximize(s.Sum(keepAttrs...))

	var minAdditions []smt.Term
	for _, id := range p.NonInitialFeatures() {
		minAdditions = append(minAdditions, s.BoolToCount(selectedTerm(id)))
	}
	s.Minimize(s.Sum(minAdditions...))

	var minDisplacement []smt.Term
	for _, id := range p.AttributesWithInitial() {
		a := p.Attributes[id]
		minDisplacement = append(minDisplacement, s.Abs(enc.AttributeTerm(id), s.IntVal(*a.Initial)))
	}
	s.Minimize(s.Sum(minDisplacement...))
}

func selectedFeatures(m *smt.Model, enc *encode.Encoder, p *fm.Problem) []string {
	var out []string
	for _, id := range p.Features {
		term := enc.FeatureTerm(id)
		if p.FeaturesAsBoolean {
			if v, ok := m.EvalBool(term); ok && v {
				out = append(out, id)
			}
			continue
		}
		if v, ok := m.EvalInt(term); ok && v == 1 {
			out = append(out, id)
		}
	}
	return out
}

// attributeValues reports only the attributes whose parent feature is
// selected in the result (SPEC_FULL.md §4.1, mirroring the original's
// `if attributes[i]["feature"] in out["features"]` filter) — an
// unselected feature's attribute value is solver bookkeeping, not part
// of the reported configuration.
func attributeValues(m *smt.Model, enc *encode.Encoder, p *fm.Problem, selectedFeatures []string) map[string]int {
	selected := make(map[string]bool, len(selectedFeatures))
	for _, id := range selectedFeatures {
		selected[id] = true
	}

	out := make(map[string]int, len(p.Attributes))
	for _, id := range p.SortedAttributeIDs() {
		if !selected[p.Attributes[id].Parent] {
			continue
		}
		if v, ok := m.EvalInt(enc.AttributeTerm(id)); ok {
			out[id] = v
		}
	}
	return out
}
