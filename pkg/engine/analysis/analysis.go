// Package analysis implements SPEC_FULL.md §4.5's check-features mode:
// an incremental, time-indexed sweep over every scheduled optional
// feature, reporting the time instants at which it is dead (never
// selectable) or false-optional (always forced selected).
//
// Every solver call's model is reused to resolve as many other
// unresolved features at the same time instant as it happens to witness
// — a satisfying model that selects feature g disproves deadness for g
// outright, and one that deselects h disproves false-optionality for h
// — cutting the number of Check calls well below one per
// feature-per-instant.
package analysis

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/encode"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

// Options controls one check-features run.
type Options struct {
	TimeoutMillis int
}

// Outcome maps each scheduled optional feature to the time instants at
// which it was found dead or false-optional. A feature absent from both
// maps behaved as a genuine optional feature at every scheduled instant.
type Outcome struct {
	DeadFeatures   map[string][]int
	FalseOptionals map[string][]int
}

// Run sweeps every instant named in p.OptionalFeatures. When p carries no
// TimeContext, a throwaway context id is minted from a fresh UUID purely
// to label the swept instants — it is never declared in the solver, so
// every instant resolves to the same (time-invariant) verdict, though
// each scheduled instant is still checked in its own scope.
func Run(p *fm.Problem, opts Options) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(p.OptionalFeatures) == 0 {
		return &Outcome{DeadFeatures: map[string][]int{}, FalseOptionals: map[string][]int{}}, nil
	}

	timeCtxID := p.TimeContext
	_, hasRealTimeCtx := p.Contexts[timeCtxID]
	if timeCtxID == "" || !hasRealTimeCtx {
		timeCtxID = "fictional_time_" + uuid.New().String()
		hasRealTimeCtx = false
	}

	s := smt.NewSolverSession()
	defer s.Close()
	if opts.TimeoutMillis > 0 {
		s.SetTimeoutMillis(opts.TimeoutMillis)
	}

	enc := encode.New(s, p)
	enc.DeclareFeatures()
	enc.DeclareAttributes()
	enc.DeclareContexts()
	enc.AssertConstraints()
	enc.AssertContextConstraints()
	for id, c := range p.Contexts {
		if id == timeCtxID || c.Initial == nil {
			continue
		}
		s.Assert(s.Eq(enc.ContextTerm(id), s.IntVal(*c.Initial)))
	}

	featureIDs := make([]string, 0, len(p.OptionalFeatures))
	for id := range p.OptionalFeatures {
		featureIDs = append(featureIDs, id)
	}
	sort.Strings(featureIDs)

	instants := instantsByTime(p.OptionalFeatures)

	dead := make(map[string][]int, len(featureIDs))
	falseOpt := make(map[string][]int, len(featureIDs))

	for _, t := range instants {
		scheduled := featuresAt(p.OptionalFeatures, featureIDs, t)
		if len(scheduled) == 0 {
			continue
		}

		err := s.Scope(func() error {
			if hasRealTimeCtx {
				s.Assert(s.Eq(enc.ContextTerm(timeCtxID), s.IntVal(t)))
			}

			deadUnresolved := make(map[string]bool, len(scheduled))
			falseOptUnresolved := make(map[string]bool, len(scheduled))
			for _, id := range scheduled {
				deadUnresolved[id] = true
				falseOptUnresolved[id] = true
			}

			for _, id := range scheduled {
				if deadUnresolved[id] {
					sat, model, err := checkSelected(s, enc, p, id, true)
					if err != nil {
						return err
					}
					delete(deadUnresolved, id)
					if !sat {
						dead[id] = append(dead[id], t)
					} else {
						pruneDead(model, enc, p, deadUnresolved)
						pruneFalseOptional(model, enc, p, falseOptUnresolved)
						model.Close()
					}
				}
			}

			for _, id := range scheduled {
				if falseOptUnresolved[id] {
					sat, model, err := checkSelected(s, enc, p, id, false)
					if err != nil {
						return err
					}
					delete(falseOptUnresolved, id)
					if !sat {
						falseOpt[id] = append(falseOpt[id], t)
					} else {
						pruneFalseOptional(model, enc, p, falseOptUnresolved)
						model.Close()
					}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return &Outcome{DeadFeatures: dead, FalseOptionals: falseOpt}, nil
}

// checkSelected checks, within its own scope, whether feature id can
// take the given selected value. On sat it returns the model (caller
// must Close it); on unsat it returns a nil model.
func checkSelected(s *smt.Session, enc *encode.Encoder, p *fm.Problem, id string, selected bool) (bool, *smt.Model, error) {
	var result smt.CheckResult
	var model *smt.Model
	err := s.Scope(func() error {
		term := enc.FeatureTerm(id)
		if p.FeaturesAsBoolean {
			s.Assert(s.Eq(term, s.BoolVal(selected)))
		} else {
			want := 0
			if selected {
				want = 1
			}
			s.Assert(s.Eq(term, s.IntVal(want)))
		}
		r, err := s.Check()
		if err != nil {
			if errors.Is(err, smt.ErrUnknown) {
				result = smt.Unsat
				return nil
			}
			return err
		}
		result = r
		if r == smt.Sat {
			model = s.Model()
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return result == smt.Sat, model, nil
}

// pruneDead marks every feature in unresolved as not-dead when model
// witnesses it selected, sparing a redundant Check.
func pruneDead(model *smt.Model, enc *encode.Encoder, p *fm.Problem, unresolved map[string]bool) {
	for id := range unresolved {
		term := enc.FeatureTerm(id)
		selected := false
		if p.FeaturesAsBoolean {
			v, ok := model.EvalBool(term)
			selected = ok && v
		} else {
			v, ok := model.EvalInt(term)
			selected = ok && v == 1
		}
		if selected {
			delete(unresolved, id)
		}
	}
}

// pruneFalseOptional marks every feature in unresolved as not-forced
// when model witnesses it deselected.
func pruneFalseOptional(model *smt.Model, enc *encode.Encoder, p *fm.Problem, unresolved map[string]bool) {
	for id := range unresolved {
		term := enc.FeatureTerm(id)
		deselected := false
		if p.FeaturesAsBoolean {
			v, ok := model.EvalBool(term)
			deselected = ok && !v
		} else {
			v, ok := model.EvalInt(term)
			deselected = ok && v == 0
		}
		if deselected {
			delete(unresolved, id)
		}
	}
}

// instantsByTime returns every distinct time value named by any
// feature's schedule, sorted ascending.
func instantsByTime(schedule fm.OptionalFeatureSchedule) []int {
	seen := make(map[int]bool)
	for _, intervals := range schedule {
		for _, iv := range intervals {
			for t := iv.Lo; t <= iv.Hi; t++ {
				seen[t] = true
			}
		}
	}
	out := make([]int, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// featuresAt returns the ids (from candidates, already sorted) scheduled
// to include instant t.
func featuresAt(schedule fm.OptionalFeatureSchedule, candidates []string, t int) []string {
	var out []string
	for _, id := range candidates {
		for _, iv := range schedule[id] {
			if t >= iv.Lo && t <= iv.Hi {
				out = append(out, id)
				break
			}
		}
	}
	return out
}
