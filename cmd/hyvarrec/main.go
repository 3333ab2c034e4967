// Command hyvarrec reasons about a context-aware feature model: find an
// optimal reconfiguration, validate that no admissible context voids the
// model, explain why a model is void, check that an extended model is a
// safe interface, or sweep for dead and false-optional features.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gitrdm/hyvarrec/internal/cliapp"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var cfg cliapp.RunConfig

	cmd := &cobra.Command{
		Use:   "hyvarrec INPUT_FILE",
		Short: "Context-aware feature model reasoner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.InputFile = args[0]
			logger := newLogger(cfg.Verbosity)
			defer logger.Sync()
			return cliapp.Run(cfg, logger)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.NumProcess, "num-of-process", "p", 1, "number of workers to use for translating constraints")
	flags.StringVarP(&cfg.OutputFile, "output-file", "o", "", "output file (stdout if unset)")
	flags.BoolVarP(&cfg.Keep, "keep", "k", false, "do not convert dependencies into SMT formulas")
	flags.CountVarP(&cfg.Verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	flags.BoolVar(&cfg.Validate, "validate", false, "check that no admissible context voids the feature model")
	flags.BoolVar(&cfg.ValidateGridSearch, "validate-grid-search", false, "use a grid search instead of a quantified formula for validate")
	flags.BoolVar(&cfg.Explain, "explain", false, "explain why the feature model is void")
	flags.StringVar(&cfg.CheckInterfaceFile, "check-interface", "", "check that the given interface file is a safe extension of the input")
	flags.BoolVar(&cfg.FeaturesAsBoolean, "features-as-boolean", false, "require constraints to treat features as booleans")
	flags.BoolVar(&cfg.CheckFeatures, "check-features", false, "list dead and false-optional features")
	flags.IntVar(&cfg.TimeoutMillis, "timeout", 0, "solver timeout in milliseconds (0 = no timeout); used by reconfigure, explain and check-features")
	flags.BoolVar(&cfg.ConstraintsMinimization, "constraints-minimization", false, "minimize the unsat core; explain mode only")
	flags.BoolVar(&cfg.NoDefaultPreferences, "no-default-preferences", false, "do not apply the default reconfiguration preferences")
	flags.BoolVar(&cfg.NonIncrementalSolver, "non-incremental-solver", false, "force Z3's non-incremental solving tactic")

	return cmd
}

func newLogger(verbosity int) *zap.Logger {
	level := zapcore.ErrorLevel
	switch {
	case verbosity == 1:
		level = zapcore.WarnLevel
	case verbosity == 2:
		level = zapcore.InfoLevel
	case verbosity >= 3:
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// exitCode maps a cliapp.Error's kind to a distinct process exit status;
// any other error (including solver failures) exits 1.
func exitCode(err error) int {
	var appErr *cliapp.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case cliapp.KindInputShape:
			fmt.Fprintln(os.Stderr, appErr)
			return 2
		case cliapp.KindTranslate:
			fmt.Fprintln(os.Stderr, appErr)
			return 3
		case cliapp.KindModeConflict:
			fmt.Fprintln(os.Stderr, appErr)
			return 4
		}
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
