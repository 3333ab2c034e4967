package explain

import (
	"testing"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

func TestRun_SatReturnsConfiguration(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		Constraints: []fm.Constraint{
			{Source: "feature[a]", Formula: func(s *smt.Session) smt.Term {
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
	if len(out.Features) != 1 || out.Features[0] != "a" {
		t.Errorf("expected [a], got %v", out.Features)
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
			{Source: "feature[a]", Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.IntVal(1))
			}},
			{Source: "!feature[b]", Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("b"), s.IntVal(0))
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
	if _, ok := out.Attributes["ax"]; !ok {
		t.Error("expected attribute of selected feature's parent present")
	}
	if _, ok := out.Attributes["bx"]; ok {
		t.Error("expected attribute of unselected feature's parent omitted")
	}
}

func TestRun_UnsatReturnsOffendingSources(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		Constraints: []fm.Constraint{
			{Source: "feature[a] = 1", Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.IntVal(1))
			}},
			{Source: "feature[a] = 0", Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.IntVal(0))
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
	if len(out.UnsatConstraints) == 0 {
		t.Fatal("expected non-empty unsat core")
	}
	seen := map[string]bool{}
	for _, src := range out.UnsatConstraints {
		seen[src] = true
	}
	if !seen["feature[a] = 1"] || !seen["feature[a] = 0"] {
		t.Errorf("expected both conflicting constraints in core, got %v", out.UnsatConstraints)
	}
}

func TestRun_MinimizeCoreStillUnsat(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		Constraints: []fm.Constraint{
			{Source: "feature[a] = 1", Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.IntVal(1))
			}},
			{Source: "feature[a] = 0", Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.IntVal(0))
			}},
		},
	}

	out, err := Run(p, Options{MinimizeCore: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Sat {
		t.Fatal("expected unsat")
	}
}
