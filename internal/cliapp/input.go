package cliapp

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/gitrdm/hyvarrec/internal/smt"
	"github.com/gitrdm/hyvarrec/internal/translate"
	"github.com/gitrdm/hyvarrec/pkg/fm"
	"github.com/gitrdm/hyvarrec/pkg/translator"
)

// inputDoc mirrors the JSON shape of SPEC_FULL.md §6.1. Ids throughout
// the document carry a `kind[bare-id]` wrapper (e.g. `feature[engine]`,
// `attribute[cost]`, `context[time]`) matching the original tool's
// convention; parseID strips it.
type inputDoc struct {
	Attributes []struct {
		ID        string `json:"id"`
		FeatureID string `json:"featureId"`
		Min       int    `json:"min"`
		Max       int    `json:"max"`
	} `json:"attributes"`

	Contexts []struct {
		ID  string `json:"id"`
		Min int    `json:"min"`
		Max int    `json:"max"`
	} `json:"contexts"`

	Configuration struct {
		SelectedFeatures []string `json:"selectedFeatures"`
		AttributeValues  []struct {
			ID    string `json:"id"`
			Value int    `json:"value"`
		} `json:"attribute_values"`
		ContextValues []struct {
			ID    string `json:"id"`
			Value int    `json:"value"`
		} `json:"context_values"`
	} `json:"configuration"`

	Constraints        []string `json:"constraints"`
	Preferences        []string `json:"preferences"`
	ContextConstraints []string `json:"context_constraints"`

	// OptionalFeatures maps a bare feature id to a list of [lo,hi] pairs.
	OptionalFeatures map[string][][2]int `json:"optional_features"`

	SMTConstraints *struct {
		Features []string `json:"features"`
		Formulas []string `json:"formulas"`
	} `json:"smt_constraints"`
	SMTPreferences []string `json:"smt_preferences"`

	TimeContext string `json:"time_context"`
}

var idPattern = regexp.MustCompile(`^(feature|attribute|context)\[(.*)\]$`)

// parseID strips the `kind[...]` wrapper and checks the wrapper's kind
// matches wantKind.
func parseID(wantKind, raw string) (string, error) {
	m := idPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", fmt.Errorf("malformed id %q: expected %s[...]", raw, wantKind)
	}
	if m[1] != wantKind {
		return "", fmt.Errorf("id %q: expected kind %q, got %q", raw, wantKind, m[1])
	}
	return m[2], nil
}

func readInputDoc(path string) (*inputDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newInputShapeError("opening input file: %w", err)
	}
	defer f.Close()

	var doc inputDoc
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, newInputShapeError("parsing input JSON: %w", err)
	}
	return &doc, nil
}

// buildContext bundles everything problem-building needs beyond the
// parsed document itself.
type buildContext struct {
	Translator        translator.Translator
	NumProcess        int
	FeaturesAsBoolean bool
	Keep              bool
}

// buildProblem turns a parsed input document into a fully-populated,
// validated fm.Problem.
func buildProblem(doc *inputDoc, bc buildContext) (*fm.Problem, error) {
	attributes := make(map[string]fm.Attribute, len(doc.Attributes))
	for _, a := range doc.Attributes {
		id, err := parseID("attribute", a.ID)
		if err != nil {
			return nil, newInputShapeError("%w", err)
		}
		parent, err := parseID("feature", a.FeatureID)
		if err != nil {
			return nil, newInputShapeError("%w", err)
		}
		attributes[id] = fm.Attribute{ID: id, Parent: parent, Min: a.Min, Max: a.Max}
	}
	for _, v := range doc.Configuration.AttributeValues {
		id, err := parseID("attribute", v.ID)
		if err != nil {
			return nil, newInputShapeError("%w", err)
		}
		a, ok := attributes[id]
		if !ok {
			return nil, newInputShapeError("initial value given for undeclared attribute %q", id)
		}
		val := v.Value
		a.Initial = &val
		attributes[id] = a
	}

	contexts := make(map[string]fm.Context, len(doc.Contexts))
	for _, c := range doc.Contexts {
		id, err := parseID("context", c.ID)
		if err != nil {
			return nil, newInputShapeError("%w", err)
		}
		contexts[id] = fm.Context{ID: id, Min: c.Min, Max: c.Max}
	}
	for _, v := range doc.Configuration.ContextValues {
		id, err := parseID("context", v.ID)
		if err != nil {
			return nil, newInputShapeError("%w", err)
		}
		c, ok := contexts[id]
		if !ok {
			return nil, newInputShapeError("initial value given for undeclared context %q", id)
		}
		val := v.Value
		c.Initial = &val
		contexts[id] = c
	}

	initialFeatures := make(map[string]bool, len(doc.Configuration.SelectedFeatures))
	for _, raw := range doc.Configuration.SelectedFeatures {
		id, err := parseID("feature", raw)
		if err != nil {
			return nil, newInputShapeError("%w", err)
		}
		initialFeatures[id] = true
	}

	featureSet := make(map[string]bool)
	for _, a := range attributes {
		featureSet[a.Parent] = true
	}
	for id := range initialFeatures {
		featureSet[id] = true
	}

	constraints, err := translateConstraints(bc, doc.Constraints, featureSet)
	if err != nil {
		return nil, err
	}

	if doc.SMTConstraints != nil {
		for _, f := range doc.SMTConstraints.Features {
			featureSet[f] = true
		}
		for _, formula := range doc.SMTConstraints.Formulas {
			src := formula
			constraints = append(constraints, fm.Constraint{
				Source: formula,
				Formula: func(s *smt.Session) smt.Term {
					return s.And(s.ParseSMT2(src)...)
				},
			})
		}
	}

	var preferences []fm.Preference
	for _, formula := range doc.SMTPreferences {
		src := formula
		preferences = append(preferences, fm.Preference{
			Formula: func(s *smt.Session) smt.Term {
				return s.And(s.ParseSMT2(src)...)
			},
		})
	}
	prefConstraints, err := translateConstraints(bc, doc.Preferences, featureSet)
	if err != nil {
		return nil, err
	}
	for _, c := range prefConstraints {
		preferences = append(preferences, fm.Preference{Formula: c.Formula})
	}

	ctxConstraints, err := translateContextConstraints(bc, doc.ContextConstraints)
	if err != nil {
		return nil, err
	}

	featureIDs := make([]string, 0, len(featureSet))
	for id := range featureSet {
		featureIDs = append(featureIDs, id)
	}
	sort.Strings(featureIDs)

	schedule := make(fm.OptionalFeatureSchedule, len(doc.OptionalFeatures))
	for id, pairs := range doc.OptionalFeatures {
		intervals := make([]fm.Interval, 0, len(pairs))
		for _, p := range pairs {
			intervals = append(intervals, fm.Interval{Lo: p[0], Hi: p[1]})
		}
		schedule[id] = intervals
	}

	p := &fm.Problem{
		Features:           featureIDs,
		FeaturesAsBoolean:  bc.FeaturesAsBoolean,
		Attributes:         attributes,
		Contexts:           contexts,
		Constraints:        constraints,
		ContextConstraints: ctxConstraints,
		Preferences:        preferences,
		OptionalFeatures:   schedule,
		TimeContext:        doc.TimeContext,
		Initial: fm.InitialConfiguration{
			SelectedFeatures: initialFeatures,
		},
	}
	if err := p.Validate(); err != nil {
		return nil, newInputShapeError("%w", err)
	}
	return p, nil
}

// translateConstraints parses sources as ordinary constraint formulas
// (used for both constraints and preferences, which share a grammar),
// in --keep mode treating each source as literal SMT-LIB2 instead.
func translateConstraints(bc buildContext, sources []string, featureSet map[string]bool) ([]fm.Constraint, error) {
	if bc.Keep {
		out := make([]fm.Constraint, len(sources))
		for i, src := range sources {
			s := src
			out[i] = fm.Constraint{Source: src, Formula: func(s2 *smt.Session) smt.Term {
				return s2.And(s2.ParseSMT2(s)...)
			}}
		}
		return out, nil
	}

	translated, err := translate.Constraints(bc.Translator, sources, bc.FeaturesAsBoolean, bc.NumProcess)
	if err != nil {
		return nil, newTranslateError(err)
	}
	out := make([]fm.Constraint, len(sources))
	for i, t := range translated {
		out[i] = fm.Constraint{Source: sources[i], Formula: t.Formula}
		for _, f := range t.Features {
			featureSet[f] = true
		}
	}
	return out, nil
}

func translateContextConstraints(bc buildContext, sources []string) ([]fm.ContextConstraint, error) {
	if bc.Keep {
		out := make([]fm.ContextConstraint, len(sources))
		for i, src := range sources {
			s := src
			out[i] = fm.ContextConstraint{Source: src, Formula: func(s2 *smt.Session) smt.Term {
				return s2.And(s2.ParseSMT2(s)...)
			}}
		}
		return out, nil
	}

	translated, err := translate.Constraints(bc.Translator, sources, bc.FeaturesAsBoolean, bc.NumProcess)
	if err != nil {
		return nil, newTranslateError(err)
	}
	out := make([]fm.ContextConstraint, len(sources))
	for i, t := range translated {
		out[i] = fm.ContextConstraint{Source: sources[i], Formula: t.Formula}
	}
	return out, nil
}
