// Package cliapp is the orchestrator: it reads the JSON input document
// (SPEC_FULL.md §6.1), builds a *fm.Problem via the constraint
// translator, dispatches to exactly one reasoning engine, and writes the
// single-line JSON reply (SPEC_FULL.md §6.3).
package cliapp

// RunConfig is the immutable, fully-resolved configuration for one run —
// built once from parsed CLI flags and never mutated afterward, the same
// discipline package fm.Problem follows for solver input.
type RunConfig struct {
	InputFile  string
	OutputFile string // empty means stdout

	NumProcess int
	Verbosity  int // 0=error, 1=warn, 2=info, 3+=debug, matching the original's -v count

	Validate           bool
	ValidateGridSearch bool
	Explain            bool
	CheckInterfaceFile string
	CheckFeatures      bool

	FeaturesAsBoolean       bool
	TimeoutMillis           int
	ConstraintsMinimization bool
	NoDefaultPreferences    bool
	NonIncrementalSolver    bool

	// Keep requests that constraint/preference source strings be parsed
	// as literal SMT-LIB2 rather than run through the expression
	// translator (the `--keep` flag; SPEC_FULL.md §9).
	Keep bool
}

// Mode names the single reasoning mode a RunConfig resolves to.
type Mode int

const (
	ModeReconfigure Mode = iota
	ModeValidate
	ModeExplain
	ModeCheckInterface
	ModeCheckFeatures
)

// Resolve picks the run's mode and validates the mutual-exclusivity and
// incompatibility rules of SPEC_FULL.md §6.4 before any file is touched.
func (c RunConfig) Resolve() (Mode, error) {
	selected := 0
	if c.Validate {
		selected++
	}
	if c.Explain {
		selected++
	}
	if c.CheckInterfaceFile != "" {
		selected++
	}
	if c.CheckFeatures {
		selected++
	}
	if selected > 1 {
		return 0, newModeConflictError("only one of validate, explain, check-interface, check-features may be selected")
	}
	if c.CheckInterfaceFile != "" && c.FeaturesAsBoolean {
		return 0, newModeConflictError("check-interface and features-as-boolean are incompatible")
	}

	switch {
	case c.Validate:
		return ModeValidate, nil
	case c.Explain:
		return ModeExplain, nil
	case c.CheckInterfaceFile != "":
		return ModeCheckInterface, nil
	case c.CheckFeatures:
		return ModeCheckFeatures, nil
	default:
		return ModeReconfigure, nil
	}
}
