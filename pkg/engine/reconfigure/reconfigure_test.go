package reconfigure

import (
	"testing"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

func intp(v int) *int { return &v }

func TestRun_KeepsInitialFeatureWhenUnconstrained(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a", "b"},
		Initial: fm.InitialConfiguration{
			SelectedFeatures: map[string]bool{"a": true},
		},
	}

	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Sat {
		t.Fatal("expected sat")
	}
	if !contains(out.Features, "a") {
		t.Errorf("expected initial feature %q kept, got %v", "a", out.Features)
	}
	if contains(out.Features, "b") {
		t.Errorf("expected non-initial feature %q not added, got %v", "b", out.Features)
	}
}

func TestRun_ConstraintForcesFeature(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a", "b"},
		Constraints: []fm.Constraint{
			{
				Source: "feature[b]",
				Formula: func(s *smt.Session) smt.Term {
					return s.Eq(s.DeclareInt("b"), s.IntVal(1))
				},
			},
		},
	}

	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Sat {
		t.Fatal("expected sat")
	}
	if !contains(out.Features, "b") {
		t.Errorf("expected forced feature %q present, got %v", "b", out.Features)
	}
}

func TestRun_Unsat(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		Constraints: []fm.Constraint{
			{Formula: func(s *smt.Session) smt.Term {
				f := s.DeclareInt("a")
				return s.And(s.Eq(f, s.IntVal(1)), s.Eq(f, s.IntVal(0)))
			}},
		},
	}

	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Sat {
		t.Fatal("expected unsat")
	}
}

func TestRun_ContextPinning(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		Contexts: map[string]fm.Context{
			"time": {ID: "time", Min: 0, Max: 10, Initial: intp(3)},
		},
		Constraints: []fm.Constraint{
			{Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.DeclareInt("time"))
			}},
		},
	}

	// a == time and time is pinned to 3, so a must equal 3 which is
	// outside [0,1] — unsatisfiable under the feature bound.
	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Sat {
		t.Fatal("expected unsat: pinned context conflicts with feature bound")
	}
}

func TestRun_AttributeOfUnselectedFeatureOmitted(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a", "b"},
		Attributes: map[string]fm.Attribute{
			"ax": {ID: "ax", Parent: "a", Min: 0, Max: 5},
			"bx": {ID: "bx", Parent: "b", Min: 0, Max: 5},
		},
		Constraints: []fm.Constraint{
			{Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.IntVal(1))
			}},
		},
	}

	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Sat {
		t.Fatal("expected sat")
	}
	if !contains(out.Features, "a") || contains(out.Features, "b") {
		t.Fatalf("expected only %q selected, got %v", "a", out.Features)
	}
	if _, ok := out.Attributes["ax"]; !ok {
		t.Error("expected attribute of selected feature's parent present")
	}
	if _, ok := out.Attributes["bx"]; ok {
		t.Error("expected attribute of unselected feature's parent omitted")
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
