package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pocketfw/reactor/internal/loop"
	"github.com/pocketfw/reactor/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// traceSummary is the success payload for the trace command.
type traceSummary struct {
	Database   string          `json:"database"`
	Dispatches []loop.Dispatch `json:"dispatches"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump a recorded dispatch trace",
		Long: `Read a trace database written by "reactor run --db" and print every
recorded dispatch in sequence order.

Example:
  reactor trace --db ./trace.db
  reactor trace --db ./trace.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the trace database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func dumpTrace(opts *TraceOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := trace.Open(opts.Database)
	if err != nil {
		formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	defer st.Close()

	dispatches, err := st.Dispatches(cmd.Context())
	if err != nil {
		formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	if opts.Format == "json" {
		return formatter.Success(traceSummary{Database: opts.Database, Dispatches: dispatches})
	}

	w := cmd.OutOrStdout()
	for _, d := range dispatches {
		if d.Data != nil {
			fmt.Fprintf(w, "%6d  pass=%-5d %-12s %-10s %-10s %v\n", d.Seq, d.Pass, d.Contract, d.Kind, d.Token, d.Data)
		} else {
			fmt.Fprintf(w, "%6d  pass=%-5d %-12s %-10s %-10s\n", d.Seq, d.Pass, d.Contract, d.Kind, d.Token)
		}
	}
	fmt.Fprintf(w, "%d dispatch(es)\n", len(dispatches))
	return nil
}
