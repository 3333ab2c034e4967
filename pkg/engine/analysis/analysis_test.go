package analysis

import (
	"testing"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

func TestRun_NoScheduleIsEmptyResult(t *testing.T) {
	p := &fm.Problem{Features: []string{"a"}}
	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.DeadFeatures) != 0 || len(out.FalseOptionals) != 0 {
		t.Fatalf("expected no findings, got %+v", out)
	}
}

func TestRun_DeadFeatureNeverSelectable(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		Constraints: []fm.Constraint{
			{Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.IntVal(0))
			}},
		},
		OptionalFeatures: fm.OptionalFeatureSchedule{
			"a": {{Lo: 0, Hi: 2}},
		},
	}

	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.DeadFeatures["a"]) != 3 {
		t.Fatalf("expected feature a dead at all 3 scheduled instants, got %v", out.DeadFeatures["a"])
	}
}

func TestRun_FalseOptionalAlwaysSelected(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		Constraints: []fm.Constraint{
			{Formula: func(s *smt.Session) smt.Term {
				return s.Eq(s.DeclareInt("a"), s.IntVal(1))
			}},
		},
		OptionalFeatures: fm.OptionalFeatureSchedule{
			"a": {{Lo: 0, Hi: 1}},
		},
	}

	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.FalseOptionals["a"]) != 2 {
		t.Fatalf("expected feature a false-optional at both instants, got %v", out.FalseOptionals["a"])
	}
	if len(out.DeadFeatures["a"]) != 0 {
		t.Fatalf("a forced true is not dead, got %v", out.DeadFeatures["a"])
	}
}

func TestRun_GenuinelyOptionalFeatureReportsNothing(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a"},
		OptionalFeatures: fm.OptionalFeatureSchedule{
			"a": {{Lo: 0, Hi: 1}},
		},
	}

	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.DeadFeatures["a"]) != 0 || len(out.FalseOptionals["a"]) != 0 {
		t.Fatalf("expected no findings for a genuinely optional feature, got %+v", out)
	}
}

func TestRun_PruningResolvesMultipleFeaturesPerInstant(t *testing.T) {
	p := &fm.Problem{
		Features: []string{"a", "b"},
		OptionalFeatures: fm.OptionalFeatureSchedule{
			"a": {{Lo: 0, Hi: 0}},
			"b": {{Lo: 0, Hi: 0}},
		},
	}

	out, err := Run(p, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.DeadFeatures) != 0 || len(out.FalseOptionals) != 0 {
		t.Fatalf("expected no findings, got %+v", out)
	}
}
