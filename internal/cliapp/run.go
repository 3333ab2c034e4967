package cliapp

import (
	"os"

	"go.uber.org/zap"

	"github.com/gitrdm/hyvarrec/pkg/engine/analysis"
	"github.com/gitrdm/hyvarrec/pkg/engine/explain"
	"github.com/gitrdm/hyvarrec/pkg/engine/interfacecheck"
	"github.com/gitrdm/hyvarrec/pkg/engine/reconfigure"
	"github.com/gitrdm/hyvarrec/pkg/engine/validate"
	"github.com/gitrdm/hyvarrec/pkg/fm"
	"github.com/gitrdm/hyvarrec/pkg/reply"
	"github.com/gitrdm/hyvarrec/pkg/translator"
)

// Run reads cfg.InputFile, builds the FM, dispatches to the resolved
// mode's engine, and writes the single-line JSON reply to cfg.OutputFile
// (or stdout).
func Run(cfg RunConfig, logger *zap.Logger) error {
	mode, err := cfg.Resolve()
	if err != nil {
		return err
	}
	logger.Debug("resolved mode", zap.Int("mode", int(mode)))

	doc, err := readInputDoc(cfg.InputFile)
	if err != nil {
		return err
	}

	bc := buildContext{
		Translator:        translator.New(),
		NumProcess:        cfg.NumProcess,
		FeaturesAsBoolean: cfg.FeaturesAsBoolean,
		Keep:              cfg.Keep,
	}
	logger.Info("building feature model", zap.String("input", cfg.InputFile))
	problem, err := buildProblem(doc, bc)
	if err != nil {
		return err
	}

	w := os.Stdout
	if cfg.OutputFile != "" {
		f, ferr := os.Create(cfg.OutputFile)
		if ferr != nil {
			return newInputShapeError("creating output file: %w", ferr)
		}
		defer f.Close()
		w = f
	}

	logger.Info("running engine", zap.Int("mode", int(mode)))
	switch mode {
	case ModeReconfigure:
		return runReconfigure(problem, cfg, w)
	case ModeValidate:
		return runValidate(problem, cfg, w)
	case ModeExplain:
		return runExplain(problem, cfg, w)
	case ModeCheckInterface:
		return runCheckInterface(problem, cfg, bc, w, logger)
	case ModeCheckFeatures:
		return runCheckFeatures(problem, cfg, w)
	default:
		return nil
	}
}

func runReconfigure(p *fm.Problem, cfg RunConfig, w *os.File) error {
	out, err := reconfigure.Run(p, reconfigure.Options{
		TimeoutMillis:              cfg.TimeoutMillis,
		SuppressDefaultPreferences: cfg.NoDefaultPreferences,
		NonIncrementalSolver:       cfg.NonIncrementalSolver,
	})
	if err != nil {
		return err
	}
	if !out.Sat {
		return reply.Write(w, reply.Unsat{Result: "unsat"})
	}
	return reply.Write(w, reply.Configuration{
		Result:     "sat",
		Features:   out.Features,
		Attributes: toAttributeValues(out.Attributes),
	})
}

func runValidate(p *fm.Problem, cfg RunConfig, w *os.File) error {
	out, err := validate.Run(p, validate.Options{GridSearch: cfg.ValidateGridSearch})
	if err != nil {
		return err
	}
	if out.Valid {
		return reply.Write(w, reply.Validate{Result: "valid"})
	}
	return reply.Write(w, reply.Validate{Result: "not_valid", Contexts: toContextValues(out.Contexts)})
}

func runExplain(p *fm.Problem, cfg RunConfig, w *os.File) error {
	out, err := explain.Run(p, explain.Options{
		MinimizeCore:  cfg.ConstraintsMinimization,
		TimeoutMillis: cfg.TimeoutMillis,
	})
	if err != nil {
		return err
	}
	if !out.Sat {
		return reply.Write(w, reply.Unsat{Result: "unsat", Constraints: out.UnsatConstraints})
	}
	return reply.Write(w, reply.Configuration{
		Result:     "sat",
		Features:   out.Features,
		Attributes: toAttributeValues(out.Attributes),
	})
}

func runCheckInterface(base *fm.Problem, cfg RunConfig, bc buildContext, w *os.File, logger *zap.Logger) error {
	ifaceDoc, err := readInputDoc(cfg.CheckInterfaceFile)
	if err != nil {
		return err
	}
	iface, err := buildProblem(ifaceDoc, bc)
	if err != nil {
		return err
	}

	out, err := interfacecheck.Run(base, iface)
	if err != nil {
		return err
	}
	if out.Valid {
		return reply.Write(w, reply.InterfaceCheck{Result: "valid"})
	}
	return reply.Write(w, reply.InterfaceCheck{
		Result:   "not_valid: " + out.Reason,
		Contexts: toContextValues(out.Contexts),
	})
}

func runCheckFeatures(p *fm.Problem, cfg RunConfig, w *os.File) error {
	out, err := analysis.Run(p, analysis.Options{TimeoutMillis: cfg.TimeoutMillis})
	if err != nil {
		return err
	}
	return reply.Write(w, reply.FeatureAnalysis{
		DeadFeatures:   out.DeadFeatures,
		FalseOptionals: out.FalseOptionals,
	})
}

func toAttributeValues(m map[string]int) []reply.AttributeValue {
	out := make([]reply.AttributeValue, 0, len(m))
	for id, v := range m {
		out = append(out, reply.AttributeValue{ID: id, Value: v})
	}
	return out
}

func toContextValues(m map[string]int) []reply.ContextValue {
	out := make([]reply.ContextValue, 0, len(m))
	for id, v := range m {
		out = append(out, reply.ContextValue{ID: id, Value: v})
	}
	return out
}
