package translator

import (
	"sort"
	"testing"

	"github.com/gitrdm/hyvarrec/internal/smt"
)

func TestTranslateConstraint_CollectsFeatureReferences(t *testing.T) {
	tr := New()
	out, err := tr.TranslateConstraint("feature[a] -> feature[b]", false)
	if err != nil {
		t.Fatalf("TranslateConstraint: %v", err)
	}
	sort.Strings(out.Features)
	if len(out.Features) != 2 || out.Features[0] != "a" || out.Features[1] != "b" {
		t.Fatalf("unexpected features: %v", out.Features)
	}
}

func TestTranslateConstraint_EvaluatesArithmeticComparison(t *testing.T) {
	tr := New()
	out, err := tr.TranslateConstraint("attribute[cost] + 1 <= attribute[budget]", false)
	if err != nil {
		t.Fatalf("TranslateConstraint: %v", err)
	}

	s := smt.NewSolverSession()
	defer s.Close()
	s.Assert(s.Eq(s.DeclareInt("cost"), s.IntVal(4)))
	s.Assert(s.Eq(s.DeclareInt("budget"), s.IntVal(5)))
	s.Assert(out.Formula(s))

	result, err := s.Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result != smt.Sat {
		t.Fatalf("expected sat (cost+1<=budget with cost=4,budget=5), got %v", result)
	}
}

func TestTranslateConstraint_BooleanFeaturesAndConnectives(t *testing.T) {
	tr := New()
	out, err := tr.TranslateConstraint("feature[a] && !feature[b]", true)
	if err != nil {
		t.Fatalf("TranslateConstraint: %v", err)
	}

	s := smt.NewSolverSession()
	defer s.Close()
	s.Assert(out.Formula(s))
	s.Assert(s.Eq(s.DeclareBool("b"), s.BoolVal(false)))

	result, err := s.Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result != smt.Sat {
		t.Fatalf("expected sat, got %v", result)
	}
}

func TestTranslateConstraint_RejectsMalformed(t *testing.T) {
	tr := New()
	if _, err := tr.TranslateConstraint("feature[a] &&", false); err == nil {
		t.Fatal("expected a parse error for trailing operator")
	}
}

func TestTranslatePreference_ParsesLikeConstraint(t *testing.T) {
	tr := New()
	out, err := tr.TranslatePreference("feature[a]", true)
	if err != nil {
		t.Fatalf("TranslatePreference: %v", err)
	}
	if len(out.Features) != 1 || out.Features[0] != "a" {
		t.Fatalf("unexpected features: %v", out.Features)
	}
}
