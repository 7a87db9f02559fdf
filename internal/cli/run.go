package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pocketfw/reactor/internal/scenario"
	"github.com/pocketfw/reactor/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// runSummary is the success payload for the run command.
type runSummary struct {
	Scenario   string                `json:"scenario"`
	Dispatches int                   `json:"dispatches"`
	Trace      []scenario.TraceEvent `json:"trace"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against the virtual clock",
		Long: `Run a scenario: create its sources, execute the timed script on a
virtual clock, and check the assertions against the dispatch trace.

Example:
  reactor run ./scenarios/periodic-tick.yaml
  reactor run --db ./trace.db ./scenarios/queue-fifo.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the full dispatch trace to this SQLite database")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	slog.Info("loading scenario", "path", path)
	s, err := scenario.LoadScenario(path)
	if err != nil {
		formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	var runOpts []scenario.RunOption
	if opts.Database != "" {
		slog.Info("opening trace database", "path", opts.Database)
		st, err := trace.Open(opts.Database)
		if err != nil {
			formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing trace database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, scenario.WithRecorder(st))
	}

	slog.Info("running scenario", "name", s.Name, "sources", len(s.Sources), "steps", len(s.Script))
	result, err := scenario.Run(s, runOpts...)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "scenario run failed", err)
	}

	if len(result.Failures) > 0 {
		formatter.Error(ErrCodeScenarioFailed,
			fmt.Sprintf("scenario %q failed", s.Name), result.Failures)
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed with %d failure(s)", s.Name, len(result.Failures)))
	}

	summary := runSummary{
		Scenario:   s.Name,
		Dispatches: len(result.Trace),
		Trace:      result.Trace,
	}
	if opts.Format == "json" {
		return formatter.Success(summary)
	}

	w := cmd.OutOrStdout()
	for _, ev := range result.Trace {
		if ev.Data != nil {
			fmt.Fprintf(w, "%6d  %-12s %-10s %v\n", ev.Seq, ev.Source, ev.Kind, ev.Data)
		} else {
			fmt.Fprintf(w, "%6d  %-12s %-10s\n", ev.Seq, ev.Source, ev.Kind)
		}
	}
	fmt.Fprintf(w, "scenario %q passed: %d dispatch(es)\n", s.Name, len(result.Trace))
	return nil
}
