package validate

import (
	"testing"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

func unconstrainedProblem() *fm.Problem {
	return &fm.Problem{
		Features: []string{"a"},
		Contexts: map[string]fm.Context{
			"time": {ID: "time", Min: 0, Max: 3},
		},
	}
}

func TestRun_ValidWhenUnconstrained(t *testing.T) {
	p := unconstrainedProblem()
	for _, gridSearch := range []bool{false, true} {
		out, err := Run(p, Options{GridSearch: gridSearch})
		if err != nil {
			t.Fatalf("grid=%v: Run: %v", gridSearch, err)
		}
		if !out.Valid {
			t.Errorf("grid=%v: expected valid, got invalid with %v", gridSearch, out.Contexts)
		}
	}
}

func TestRun_InvalidWhenContextExcludesAllConfigurations(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		Contexts: map[string]fm.Context{
			"time": {ID: "time", Min: 0, Max: 3},
		},
		Constraints: []fm.Constraint{
			{Formula: func(s *smt.Session) smt.Term {
				// feature a must track time, but a is bounded to [0,1]
				// while time ranges over [0,3] — time=2 or time=3 admit
				// no satisfying a.
				return s.Eq(s.DeclareInt("a"), s.DeclareInt("time"))
			}},
		},
	}

	for _, gridSearch := range []bool{false, true} {
		out, err := Run(p, Options{GridSearch: gridSearch})
		if err != nil {
			t.Fatalf("grid=%v: Run: %v", gridSearch, err)
		}
		if out.Valid {
			t.Errorf("grid=%v: expected invalid", gridSearch)
		}
	}
}

func TestRun_QuantifiedAndGridSearchAgree(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a", "b"},
		Contexts: map[string]fm.Context{
			"time": {ID: "time", Min: 0, Max: 5},
		},
		Constraints: []fm.Constraint{
			{Formula: func(s *smt.Session) smt.Term {
				return s.Or(s.Eq(s.DeclareInt("a"), s.IntVal(1)), s.Eq(s.DeclareInt("b"), s.IntVal(1)))
			}},
		},
	}

	quantified, err := Run(p, Options{GridSearch: false})
	if err != nil {
		t.Fatalf("quantified Run: %v", err)
	}
	grid, err := Run(p, Options{GridSearch: true})
	if err != nil {
		t.Fatalf("grid Run: %v", err)
	}
	if quantified.Valid != grid.Valid {
		t.Fatalf("verdicts disagree: quantified=%v grid=%v", quantified.Valid, grid.Valid)
	}
}
