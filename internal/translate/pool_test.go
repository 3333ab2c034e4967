package translate

import (
	"errors"
	"testing"

	"github.com/gitrdm/hyvarrec/pkg/translator"
)

func TestConstraints_PreservesOrderSequential(t *testing.T) {
	tr := translator.New()
	sources := []string{"feature[a]", "feature[b]", "feature[c]"}

	out, err := Constraints(tr, sources, true, 1)
	if err != nil {
		t.Fatalf("Constraints: %v", err)
	}
	for i, src := range sources {
		want, _ := tr.TranslateConstraint(src, true)
		if len(out[i].Features) != len(want.Features) || out[i].Features[0] != want.Features[0] {
			t.Errorf("index %d: got %v, want %v", i, out[i].Features, want.Features)
		}
	}
}

func TestConstraints_PreservesOrderParallel(t *testing.T) {
	tr := translator.New()
	sources := []string{"feature[a]", "feature[b]", "feature[c]", "feature[d]", "feature[e]"}

	out, err := Constraints(tr, sources, true, 4)
	if err != nil {
		t.Fatalf("Constraints: %v", err)
	}
	for i, src := range sources {
		want, _ := tr.TranslateConstraint(src, true)
		if out[i].Features[0] != want.Features[0] {
			t.Errorf("index %d: got %v, want %v", i, out[i].Features, want.Features)
		}
	}
}

type failingTranslator struct{}

func (failingTranslator) TranslateConstraint(source string, _ bool) (translator.Translated, error) {
	if source == "bad" {
		return translator.Translated{}, errors.New("boom")
	}
	return translator.Translated{Features: []string{source}}, nil
}

func (failingTranslator) TranslatePreference(source string, b bool) (translator.Translated, error) {
	return failingTranslator{}.TranslateConstraint(source, b)
}

func TestConstraints_PropagatesFirstError(t *testing.T) {
	_, err := Constraints(failingTranslator{}, []string{"ok1", "bad", "ok2"}, false, 3)
	if err == nil {
		t.Fatal("expected an error")
	}
}
