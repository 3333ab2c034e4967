// Package explain implements SPEC_FULL.md §4.3: check satisfiability of
// the FM pinned to its initial contexts, and on failure, report the
// minimal set of original constraint source strings responsible —
// Z3's tracked-assertion unsat-core protocol.
package explain

import (
	"errors"
	"fmt"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/encode"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

// Options controls one explain run.
type Options struct {
	// MinimizeCore enables Z3's unsat-core minimization pass
	// (`--constraints-minimization`), trading solve time for a smaller
	// core.
	MinimizeCore bool

	TimeoutMillis int
}

// Outcome mirrors reconfigure.Outcome on the sat path, and additionally
// carries the original source strings of the constraints that make the
// FM unsatisfiable.
type Outcome struct {
	Sat        bool
	Features   []string
	Attributes map[string]int

	// UnsatConstraints holds every constraint/context-constraint source
	// string that participated in the unsat core, in declaration order.
	// Populated only when Sat is false.
	UnsatConstraints []string
}

const (
	constraintTagPrefix = "constraint#"
	contextTagPrefix    = "context-constraint#"
)

// Run checks satisfiability and, when unsatisfiable, extracts the unsat
// core and maps it back to the original source strings — including any
// constraints injected after the explain tag index was first built
// (SPEC_FULL.md §9: the orchestrator must recompute this mapping after
// injection, never reuse a length captured beforehand).
func Run(p *fm.Problem, opts Options) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := smt.NewSolverSession()
	defer s.Close()
	if opts.MinimizeCore {
		s.EnableCoreMinimization()
	}
	if opts.TimeoutMillis > 0 {
		s.SetTimeoutMillis(opts.TimeoutMillis)
	}

	enc := encode.New(s, p)
	enc.DeclareFeatures()
	enc.DeclareAttributes()
	enc.DeclareContexts()
	enc.PinContextsToInitial()

	sourceByTag := make(map[string]string, len(p.Constraints)+len(p.ContextConstraints))
	tagOrder := make([]string, 0, len(p.Constraints)+len(p.ContextConstraints))
	for i, c := range p.Constraints {
		tag := fmt.Sprintf("%s%d", constraintTagPrefix, i)
		s.AssertAndTrack(c.Formula(s), tag)
		sourceByTag[tag] = c.Source
		tagOrder = append(tagOrder, tag)
	}
	for i, c := range p.ContextConstraints {
		tag := fmt.Sprintf("%s%d", contextTagPrefix, i)
		s.AssertAndTrack(c.Formula(s), tag)
		sourceByTag[tag] = c.Source
		tagOrder = append(tagOrder, tag)
	}

	result, err := s.Check()
	if err != nil {
		if errors.Is(err, smt.ErrUnknown) {
			return &Outcome{Sat: false}, nil
		}
		return nil, err
	}
	if result == smt.Unsat {
		core := s.UnsatCore()
		inCore := make(map[string]bool, len(core))
		for _, tag := range core {
			inCore[tag] = true
		}
		sources := make([]string, 0, len(core))
		for _, tag := range tagOrder {
			if inCore[tag] {
				sources = append(sources, sourceByTag[tag])
			}
		}
		return &Outcome{Sat: false, UnsatConstraints: sources}, nil
	}

	m := s.Model()
	defer m.Close()

	features := make([]string, 0, len(p.Features))
	for _, id := range p.Features {
		term := enc.FeatureTerm(id)
		if p.FeaturesAsBoolean {
			if v, ok := m.EvalBool(term); ok && v {
				features = append(features, id)
			}
			continue
		}
		if v, ok := m.EvalInt(term); ok && v == 1 {
			features = append(features, id)
		}
	}

	selected := make(map[string]bool, len(features))
	for _, id := range features {
		selected[id] = true
	}
	attributes := make(map[string]int, len(p.Attributes))
	for _, id := range p.SortedAttributeIDs() {
		if !selected[p.Attributes[id].Parent] {
			continue
		}
		if v, ok := m.EvalInt(enc.AttributeTerm(id)); ok {
			attributes[id] = v
		}
	}

	return &Outcome{Sat: true, Features: features, Attributes: attributes}, nil
}
