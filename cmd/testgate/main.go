// testgate is the batch CLI: generate tests for a dataset of source
// functions and score generated tests against references.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/artaoheed/testgate/internal/app"
	"github.com/artaoheed/testgate/internal/config"
	"github.com/artaoheed/testgate/internal/scoring"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "testgate",
		Short:        "AI-assisted unit test generation and evaluation",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(newGenerateCmd(&cfgPath))
	root.AddCommand(newEvaluateCmd(&cfgPath))
	return root
}

func buildApp(cfgPath string) (*app.App, *zap.SugaredLogger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, err
	}
	log := logger.Sugar()

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

func newGenerateCmd(cfgPath *string) *cobra.Command {
	var runPytest bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate tests for every source file in the dataset functions dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Dataset.Run(cmd.Context(),
				a.Config.Dataset.FunctionsDir, a.Config.Dataset.GeneratedTestsDir, runPytest)
			if err != nil {
				return err
			}
			log.Infow("dataset generation done",
				"files", len(results), "output_dir", a.Config.Dataset.GeneratedTestsDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&runPytest, "run-pytest", false, "validate each generated file in the pytest sandbox")
	return cmd
}

func newEvaluateCmd(cfgPath *string) *cobra.Command {
	var runPytest bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score generated tests against the expected reference tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := buildApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			pairs, summary, err := scoring.EvaluatePairs(cmd.Context(),
				a.Config.Dataset.ExpectedTestsDir, a.Config.Dataset.GeneratedTestsDir,
				a.Scoring, log)
			if err != nil {
				return err
			}

			out := map[string]any{"summary": summary, "pairs": pairs}
			if runPytest {
				outcome, err := a.Runner.RunSuite(cmd.Context(),
					a.Config.Dataset.FunctionsDir, a.Config.Dataset.GeneratedTestsDir)
				if err != nil {
					log.Warnw("suite pytest run could not be invoked", "error", err)
				} else {
					out["pytest_passed"] = outcome.Passed
					out["pytest_output"] = outcome.Output
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&runPytest, "run-pytest", true, "run pytest over functions plus generated tests")
	return cmd
}
