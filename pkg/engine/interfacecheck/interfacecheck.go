// Package interfacecheck implements SPEC_FULL.md §4.4: checking that an
// abstract interface I — a subset of a base feature model M's features,
// attributes, contexts, constraints, and context-constraints — is a sound
// refinement of M, under two conditions:
//
//	C1  context extensibility: every context tuple satisfying I's
//	    context-constraints must also satisfy M's context-constraints.
//
//	C2  FM refinement: every assignment of interface features/
//	    attributes/contexts satisfying the interface must extend to an
//	    assignment of the non-interface features/attributes satisfying
//	    the full model M.
//
// Because I is a subset of M rather than an independent model, both
// checks declare exactly one set of solver constants — M's — and treat
// I's features/attributes/contexts purely as an id subset of that one
// declaration; an interface constraint referencing a shared id therefore
// binds the identical variable the base model uses, with no separate
// aliasing step required.
//
// Both checks run only after the mode restriction and input-shape
// pre-checks (feature-encoding, attribute-range containment,
// context-range strict-narrowing, declared-context coverage) pass, so a
// malformed pairing never reaches the solver.
package interfacecheck

import (
	"errors"
	"fmt"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/encode"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

// Outcome reports whether the interface is valid and, on failure, a
// short machine-readable reason plus a witnessing assignment.
type Outcome struct {
	Valid    bool
	Reason   string
	Contexts map[string]int
}

// Run checks iface against base.
func Run(base, iface *fm.Problem) (*Outcome, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if err := iface.Validate(); err != nil {
		return nil, err
	}

	// Mode restriction (SPEC_FULL.md §4.4): incompatible with Boolean
	// feature encoding outright, not merely a mismatch between the two.
	if base.FeaturesAsBoolean || iface.FeaturesAsBoolean {
		return &Outcome{Valid: false, Reason: "incompatible feature encoding"}, nil
	}

	for id := range base.Contexts {
		if _, ok := iface.Contexts[id]; !ok {
			return &Outcome{Valid: false, Reason: fmt.Sprintf("interface missing context %q", id)}, nil
		}
	}

	// Input-shape checks, pre-SMT, fast-fail with "not_valid: <reason>":
	// every interface attribute must be declared in M with a range
	// inside M's.
	for id, ifaceAttr := range iface.Attributes {
		baseAttr, ok := base.Attributes[id]
		if !ok {
			return &Outcome{Valid: false, Reason: fmt.Sprintf("interface attribute %q not declared in the base model", id)}, nil
		}
		if ifaceAttr.Min < baseAttr.Min || ifaceAttr.Max > baseAttr.Max {
			return &Outcome{Valid: false, Reason: fmt.Sprintf(
				"interface attribute %q range [%d,%d] is not inside the base model's [%d,%d]",
				id, ifaceAttr.Min, ifaceAttr.Max, baseAttr.Min, baseAttr.Max)}, nil
		}
	}

	// Every interface context must strictly narrow M's range — both
	// endpoints must differ; an interface must be a proper subrange.
	for id, ifaceCtx := range iface.Contexts {
		baseCtx, ok := base.Contexts[id]
		if !ok {
			return &Outcome{Valid: false, Reason: fmt.Sprintf("interface context %q not declared in the base model", id)}, nil
		}
		if ifaceCtx.Min == baseCtx.Min || ifaceCtx.Max == baseCtx.Max {
			return &Outcome{Valid: false, Reason: fmt.Sprintf(
				"interface context %q range [%d,%d] does not strictly narrow the base model's [%d,%d]",
				id, ifaceCtx.Min, ifaceCtx.Max, baseCtx.Min, baseCtx.Max)}, nil
		}
	}

	out, err := checkContextExtensibility(base, iface)
	if err != nil || !out.Valid {
		return out, err
	}
	return checkRefinement(base, iface)
}

// constraintTerms evaluates a slice of fm.Constraint against s, without
// going through an Encoder tied to whichever Problem they came from —
// every term just needs the shared Session to resolve its identifiers
// against the one declaration the caller already made.
func constraintTerms(s *smt.Session, cs []fm.Constraint) []smt.Term {
	out := make([]smt.Term, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Formula(s))
	}
	return out
}

func contextConstraintTerms(s *smt.Session, ccs []fm.ContextConstraint) []smt.Term {
	out := make([]smt.Term, 0, len(ccs))
	for _, c := range ccs {
		out = append(out, c.Formula(s))
	}
	return out
}

// ifaceAttributeBoundsTerms bounds every interface attribute to iface's own
// published [min,max] — which the input-shape check already guarantees
// lies inside base's — rather than base's possibly wider range, since the
// interface's domain bound is what an external caller of the interface
// actually sees.
func ifaceAttributeBoundsTerms(s *smt.Session, enc *encode.Encoder, iface *fm.Problem) []smt.Term {
	out := make([]smt.Term, 0, len(iface.Attributes)*2)
	for id, a := range iface.Attributes {
		v := enc.AttributeTerm(id)
		out = append(out, s.Ge(v, s.IntVal(a.Min)), s.Le(v, s.IntVal(a.Max)))
	}
	return out
}

// checkContextExtensibility is C1 (SPEC_FULL.md §4.4): declare context
// variables with M's ranges, assert I's context-constraints, assert the
// negation of M's context-constraints, and check — sat means some
// context satisfies the interface but not the base model.
func checkContextExtensibility(base, iface *fm.Problem) (*Outcome, error) {
	s := smt.NewSolverSession()
	defer s.Close()

	enc := encode.New(s, base)
	enc.DeclareContexts()

	ifaceAdmissible := s.And(contextConstraintTerms(s, iface.ContextConstraints)...)
	baseAdmissible := s.And(contextConstraintTerms(s, base.ContextConstraints)...)
	s.Assert(s.And(ifaceAdmissible, s.Not(baseAdmissible)))

	result, err := s.Check()
	if err != nil {
		if errors.Is(err, smt.ErrUnknown) {
			return &Outcome{Valid: false, Reason: "context extensibility check timed out"}, nil
		}
		return nil, err
	}
	if result == smt.Unsat {
		return &Outcome{Valid: true}, nil
	}

	m := s.Model()
	defer m.Close()
	ctxVals := make(map[string]int, len(base.Contexts))
	for _, id := range base.SortedContextIDs() {
		if v, ok := m.EvalInt(enc.ContextTerm(id)); ok {
			ctxVals[id] = v
		}
	}
	return &Outcome{Valid: false, Reason: "context not extensible", Contexts: ctxVals}, nil
}

// checkRefinement is C2 (SPEC_FULL.md §4.4): assert interface domain
// bounds, interface context-constraints, the full model's
// context-constraints, and interface constraints; then assert
// ∀ (non-interface features ∪ non-interface attributes). ¬Ψ, where Ψ is
// the conjunction of non-interface domain bounds and all of M's
// constraints. Sat means a witnessing interface assignment has no
// extension over the non-interface variables that satisfies M.
func checkRefinement(base, iface *fm.Problem) (*Outcome, error) {
	s := smt.NewSolverSession()
	defer s.Close()

	enc := encode.New(s, base)
	enc.DeclareFeaturesUnbounded()
	enc.DeclareAttributesUnbounded()
	enc.DeclareContextsUnbounded()

	ifaceFeatures := make(map[string]bool, len(iface.Features))
	for _, id := range iface.Features {
		ifaceFeatures[id] = true
	}
	ifaceAttributes := make(map[string]bool, len(iface.Attributes))
	for id := range iface.Attributes {
		ifaceAttributes[id] = true
	}

	nonIfaceFeatures := make(map[string]bool)
	for _, id := range base.Features {
		if !ifaceFeatures[id] {
			nonIfaceFeatures[id] = true
		}
	}
	nonIfaceAttributes := make(map[string]bool)
	for id := range base.Attributes {
		if !ifaceAttributes[id] {
			nonIfaceAttributes[id] = true
		}
	}

	var outer []smt.Term
	outer = append(outer, enc.ContextBoundsTerms(nil)...) // contexts declared with M's ranges
	outer = append(outer, enc.FeatureBoundsTerms(ifaceFeatures)...)
	outer = append(outer, ifaceAttributeBoundsTerms(s, enc, iface)...)
	outer = append(outer, contextConstraintTerms(s, iface.ContextConstraints)...)
	outer = append(outer, contextConstraintTerms(s, base.ContextConstraints)...)
	outer = append(outer, constraintTerms(s, iface.Constraints)...)

	var psi []smt.Term
	psi = append(psi, enc.FeatureBoundsTerms(nonIfaceFeatures)...)
	psi = append(psi, enc.AttributeBoundsTerms(nonIfaceAttributes)...)
	psi = append(psi, enc.ConstraintTerms()...) // all of M's constraints

	var bound []smt.Term
	bound = append(bound, enc.FeatureTerms(nonIfaceFeatures)...)
	bound = append(bound, enc.AttributeTerms(nonIfaceAttributes)...)

	outer = append(outer, s.ForAll(bound, s.Not(s.And(psi...))))
	s.Assert(s.And(outer...))

	result, err := s.Check()
	if err != nil {
		if errors.Is(err, smt.ErrUnknown) {
			return &Outcome{Valid: false, Reason: "refinement check timed out"}, nil
		}
		return nil, err
	}
	if result == smt.Unsat {
		return &Outcome{Valid: true}, nil
	}

	m := s.Model()
	defer m.Close()
	ctxVals := make(map[string]int, len(iface.Contexts))
	for id := range iface.Contexts {
		if v, ok := m.EvalInt(enc.ContextTerm(id)); ok {
			ctxVals[id] = v
		}
	}
	return &Outcome{Valid: false, Reason: "extended context admits no base-satisfying configuration", Contexts: ctxVals}, nil
}
