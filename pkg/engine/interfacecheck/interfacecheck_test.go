package interfacecheck

import (
	"testing"

	"github.com/gitrdm/hyvarrec/pkg/fm"
)

func TestRun_FeatureEncodingMismatch(t *testing.T) {
	base := &fm.Problem{FeaturesAsBoolean: false}
	iface := &fm.Problem{FeaturesAsBoolean: true}

	out, err := Run(base, iface)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Valid {
		t.Fatal("expected invalid on feature-encoding mismatch")
	}
	if out.Reason == "" {
		t.Error("expected a reason")
	}
}

func TestRun_MissingContext(t *testing.T) {
	base := &fm.Problem{
		Contexts: map[string]fm.Context{"time": {ID: "time", Min: 0, Max: 5}},
	}
	iface := &fm.Problem{}

	out, err := Run(base, iface)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Valid {
		t.Fatal("expected invalid: interface dropped a base context")
	}
}

func TestRun_NarrowerContextIsValid(t *testing.T) {
	// A strictly narrower interface context range is exactly the valid,
	// spec-required shape (SPEC_FULL.md §4.4): every context the interface
	// admits is a base-admitted context too, and the interface exposes no
	// feature or attribute the base model doesn't already cover in full.
	base := &fm.Problem{
		Features: []string{"a"},
		Contexts: map[string]fm.Context{"time": {ID: "time", Min: 0, Max: 5}},
	}
	iface := &fm.Problem{
		Features: []string{"a"},
		Contexts: map[string]fm.Context{"time": {ID: "time", Min: 1, Max: 4}},
	}

	out, err := Run(base, iface)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Valid {
		t.Fatalf("expected valid for a strictly narrower interface context, got reason %q", out.Reason)
	}
}

func TestRun_IdenticalContextRangeRejected(t *testing.T) {
	// SPEC_FULL.md §4.4's input-shape pre-check rejects an interface
	// context range that matches the base model's on either endpoint —
	// identical ranges do not strictly narrow.
	fmDef := func() *fm.Problem {
		return &fm.Problem{
			Features: []string{"a"},
			Contexts: map[string]fm.Context{"time": {ID: "time", Min: 0, Max: 5}},
		}
	}
	base := fmDef()
	iface := fmDef()

	out, err := Run(base, iface)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Valid {
		t.Fatal("expected invalid: identical context range does not strictly narrow the base model's")
	}
}

func TestRun_AttributeRangeOutsideBaseRejected(t *testing.T) {
	base := &fm.Problem{
		Features:   []string{"a"},
		Attributes: map[string]fm.Attribute{"x": {ID: "x", Parent: "a", Min: 0, Max: 5}},
		Contexts:   map[string]fm.Context{"time": {ID: "time", Min: 0, Max: 5}},
	}
	iface := &fm.Problem{
		Features:   []string{"a"},
		Attributes: map[string]fm.Attribute{"x": {ID: "x", Parent: "a", Min: 0, Max: 10}},
		Contexts:   map[string]fm.Context{"time": {ID: "time", Min: 1, Max: 4}},
	}

	out, err := Run(base, iface)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Valid {
		t.Fatal("expected invalid: interface attribute range exceeds the base model's")
	}
}
