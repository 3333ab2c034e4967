// Package translator turns the original constraint/preference source
// strings of an input document (SPEC_FULL.md §6.1, §8) into Z3 formulas.
// The interface lets the orchestrator swap in a different grammar
// without touching any engine; the default implementation parses a small
// expression language over feature[id]/attribute[id]/context[id]
// references, grounded on the constraint/preference grammar the original
// tool's ANTLR-based SpecTranslator accepted.
package translator

import (
	"fmt"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/pkg/fm"
)

// Translated is one source string's parse result: a lazily-evaluated
// formula plus the feature ids it references (Invariant 4 of
// SPEC_FULL.md §3 — the translator, not just the input's declared
// feature list, is the authority on which features exist).
type Translated struct {
	Formula  fm.FormulaFunc
	Features []string
}

// Translator parses one constraint or preference source string at a
// time. Implementations must be safe to call from multiple goroutines —
// internal/translate's worker pool calls it concurrently.
type Translator interface {
	TranslateConstraint(source string, featuresAsBoolean bool) (Translated, error)
	TranslatePreference(source string, featuresAsBoolean bool) (Translated, error)
}

// exprTranslator is the default Translator: a small hand-written
// recursive-descent parser. It holds no mutable state, so one instance
// is shared across every worker.
type exprTranslator struct{}

// New returns the default expression-grammar Translator.
func New() Translator { return exprTranslator{} }

func (exprTranslator) TranslateConstraint(source string, featuresAsBoolean bool) (Translated, error) {
	return translate(source, featuresAsBoolean)
}

func (exprTranslator) TranslatePreference(source string, featuresAsBoolean bool) (Translated, error) {
	return translate(source, featuresAsBoolean)
}

func translate(source string, featuresAsBoolean bool) (Translated, error) {
	n, err := parseExpr(source)
	if err != nil {
		return Translated{}, fmt.Errorf("translator: %q: %w", source, err)
	}
	feats := make(map[string]bool)
	n.collectFeatures(feats)
	ids := make([]string, 0, len(feats))
	for id := range feats {
		ids = append(ids, id)
	}
	return Translated{
		Formula: func(s *smt.Session) smt.Term {
			return n.eval(s, featuresAsBoolean)
		},
		Features: ids,
	}, nil
}
