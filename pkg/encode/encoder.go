// Package encode declares solver variables and asserts domain bounds and
// constraints shared by all five reasoning engines (SPEC_FULL.md §2's
// "Encoder" component). An Encoder wraps exactly one smt.Session; an
// engine that opens a second Session (validate's grid search,
// interface-check) builds a second Encoder for it.
package encode

import (
	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

// Encoder binds a Problem's features, attributes, and contexts to terms in
// one Session and builds the formulas engines assert or quantify over.
type Encoder struct {
	Session *smt.Session
	Problem *fm.Problem

	featureTerms  map[string]smt.Term
	attributeTerms map[string]smt.Term
	contextTerms  map[string]smt.Term
}

// New declares nothing yet; call the Declare* methods for the parts a
// given engine needs.
func New(s *smt.Session, p *fm.Problem) *Encoder {
	return &Encoder{
		Session:        s,
		Problem:        p,
		featureTerms:   make(map[string]smt.Term, len(p.Features)),
		attributeTerms: make(map[string]smt.Term, len(p.Attributes)),
		contextTerms:   make(map[string]smt.Term, len(p.Contexts)),
	}
}

// FeatureTerm returns the declared variable for a feature id.
func (e *Encoder) FeatureTerm(id string) smt.Term { return e.featureTerms[id] }

// AttributeTerm returns the declared variable for an attribute id.
func (e *Encoder) AttributeTerm(id string) smt.Term { return e.attributeTerms[id] }

// ContextTerm returns the declared variable for a context id.
func (e *Encoder) ContextTerm(id string) smt.Term { return e.contextTerms[id] }

// FeatureTerms returns the declared feature terms, in Problem.Features
// order, restricted to the given id set when include is non-nil.
func (e *Encoder) FeatureTerms(include map[string]bool) []smt.Term {
	var out []smt.Term
	for _, id := range e.Problem.Features {
		if include != nil && !include[id] {
			continue
		}
		out = append(out, e.featureTerms[id])
	}
	return out
}

// AttributeTerms returns the declared attribute terms, in sorted id
// order, restricted to the given id set when include is non-nil.
func (e *Encoder) AttributeTerms(include map[string]bool) []smt.Term {
	var out []smt.Term
	for _, id := range e.Problem.SortedAttributeIDs() {
		if include != nil && !include[id] {
			continue
		}
		out = append(out, e.attributeTerms[id])
	}
	return out
}

// DeclareFeatures declares every feature variable. In Boolean mode each
// feature is a Bool constant; otherwise it is an Int constant bounded to
// [0,1] (the domain-bounds assertion SPEC_FULL.md §4.1 requires before
// anything else).
func (e *Encoder) DeclareFeatures() {
	s := e.Session
	for _, id := range e.Problem.Features {
		if e.Problem.FeaturesAsBoolean {
			e.featureTerms[id] = s.DeclareBool(id)
			continue
		}
		v := s.DeclareInt(id)
		e.featureTerms[id] = v
		s.Assert(s.Ge(v, s.IntVal(0)))
		s.Assert(s.Le(v, s.IntVal(1)))
	}
}

// DeclareFeaturesUnbounded declares the feature constants without
// asserting their domain bound, for quantified formulas (validate's
// quantified mode, interface-check's refinement check) where the bound
// must appear inside the quantifier body rather than as a global
// assertion — see FeatureBoundsTerms.
func (e *Encoder) DeclareFeaturesUnbounded() {
	s := e.Session
	for _, id := range e.Problem.Features {
		if e.Problem.FeaturesAsBoolean {
			e.featureTerms[id] = s.DeclareBool(id)
		} else {
			e.featureTerms[id] = s.DeclareInt(id)
		}
	}
}

// DeclareAttributesUnbounded declares the attribute constants without
// asserting their domain bound; see DeclareFeaturesUnbounded.
func (e *Encoder) DeclareAttributesUnbounded() {
	s := e.Session
	for _, id := range e.Problem.SortedAttributeIDs() {
		e.attributeTerms[id] = s.DeclareInt(id)
	}
}

// FeatureBoundsTerms returns the feature-domain bound formulas without
// asserting them (non-Boolean mode only — Boolean features have no
// separate bound formula), used to build the Φ conjunction in validate's
// quantified mode and interface-check's refinement check.
func (e *Encoder) FeatureBoundsTerms(include map[string]bool) []smt.Term {
	if e.Problem.FeaturesAsBoolean {
		return nil
	}
	s := e.Session
	var out []smt.Term
	for _, id := range e.Problem.Features {
		if include != nil && !include[id] {
			continue
		}
		v := e.featureTerms[id]
		out = append(out, s.Ge(v, s.IntVal(0)), s.Le(v, s.IntVal(1)))
	}
	return out
}

// DeclareAttributes declares every attribute variable and asserts its
// [min,max] bound unconditionally — SPEC_FULL.md §3 Open Question 2 is
// resolved in favor of the encoding never conditioning attribute bounds on
// parent selection; callers filter by parent selection when reading
// output, not when asserting.
func (e *Encoder) DeclareAttributes() {
	s := e.Session
	for _, id := range e.Problem.SortedAttributeIDs() {
		a := e.Problem.Attributes[id]
		v := s.DeclareInt(id)
		e.attributeTerms[id] = v
		s.Assert(s.Ge(v, s.IntVal(a.Min)))
		s.Assert(s.Le(v, s.IntVal(a.Max)))
	}
}

// AttributeBoundsTerms returns the attribute-domain bound formulas without
// asserting them, restricted to the given id set when include is non-nil.
func (e *Encoder) AttributeBoundsTerms(include map[string]bool) []smt.Term {
	s := e.Session
	var out []smt.Term
	for _, id := range e.Problem.SortedAttributeIDs() {
		if include != nil && !include[id] {
			continue
		}
		a := e.Problem.Attributes[id]
		v := e.attributeTerms[id]
		out = append(out, s.Ge(v, s.IntVal(a.Min)), s.Le(v, s.IntVal(a.Max)))
	}
	return out
}

// DeclareContexts declares every context variable and asserts its
// [min,max] bound.
func (e *Encoder) DeclareContexts() {
	s := e.Session
	for _, id := range e.Problem.SortedContextIDs() {
		c := e.Problem.Contexts[id]
		v := s.DeclareInt(id)
		e.contextTerms[id] = v
		s.Assert(s.Ge(v, s.IntVal(c.Min)))
		s.Assert(s.Le(v, s.IntVal(c.Max)))
	}
}

// DeclareContextsUnbounded declares the context constants without
// asserting their domain bound; see DeclareFeaturesUnbounded. Used by
// interface-check's refinement check, which adds the context bounds
// (ContextBoundsTerms) as conjuncts of the formula it asserts.
func (e *Encoder) DeclareContextsUnbounded() {
	s := e.Session
	for _, id := range e.Problem.SortedContextIDs() {
		e.contextTerms[id] = s.DeclareInt(id)
	}
}

// ContextBoundsTerms returns the context-domain bound formulas without
// asserting them, restricted to the given id set when include is
// non-nil.
func (e *Encoder) ContextBoundsTerms(include map[string]bool) []smt.Term {
	s := e.Session
	var out []smt.Term
	for _, id := range e.Problem.SortedContextIDs() {
		if include != nil && !include[id] {
			continue
		}
		c := e.Problem.Contexts[id]
		v := e.contextTerms[id]
		out = append(out, s.Ge(v, s.IntVal(c.Min)), s.Le(v, s.IntVal(c.Max)))
	}
	return out
}

// ContextTerms returns the declared context terms, in sorted id order,
// restricted to the given id set when include is non-nil.
func (e *Encoder) ContextTerms(include map[string]bool) []smt.Term {
	var out []smt.Term
	for _, id := range e.Problem.SortedContextIDs() {
		if include != nil && !include[id] {
			continue
		}
		out = append(out, e.contextTerms[id])
	}
	return out
}

// PinContextsToInitial asserts `c = initial(c)` for every context that
// carries an initial value — the context-pinning rule reconfigure and
// explain share (SPEC_FULL.md §4.1, §4.3; testable property 2).
func (e *Encoder) PinContextsToInitial() {
	s := e.Session
	for _, id := range e.Problem.SortedContextIDs() {
		c := e.Problem.Contexts[id]
		if c.Initial == nil {
			continue
		}
		s.Assert(s.Eq(e.contextTerms[id], s.IntVal(*c.Initial)))
	}
}

// AssertConstraints asserts every FM constraint as a hard, untracked
// assertion.
func (e *Encoder) AssertConstraints() {
	for _, c := range e.Problem.Constraints {
		e.Session.Assert(c.Formula(e.Session))
	}
}

// ConstraintTerms builds (without asserting) the formula for every FM
// constraint, used for the Φ conjunction in validate's quantified mode and
// the Ψ conjunction in interface-check's refinement check.
func (e *Encoder) ConstraintTerms() []smt.Term {
	out := make([]smt.Term, 0, len(e.Problem.Constraints))
	for _, c := range e.Problem.Constraints {
		out = append(out, c.Formula(e.Session))
	}
	return out
}

// AssertContextConstraints asserts every context-constraint.
func (e *Encoder) AssertContextConstraints() {
	for _, c := range e.Problem.ContextConstraints {
		e.Session.Assert(c.Formula(e.Session))
	}
}

// ContextConstraintTerms builds (without asserting) every context
// constraint formula.
func (e *Encoder) ContextConstraintTerms() []smt.Term {
	out := make([]smt.Term, 0, len(e.Problem.ContextConstraints))
	for _, c := range e.Problem.ContextConstraints {
		out = append(out, c.Formula(e.Session))
	}
	return out
}
