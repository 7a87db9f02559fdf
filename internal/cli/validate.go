package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pocketfw/reactor/internal/profile"
	"github.com/pocketfw/reactor/internal/scenario"
)

// validateSummary is the success payload for one validated file.
type validateSummary struct {
	File string `json:"file"`
	Kind string `json:"kind"` // "scenario" or "profile"
	Name string `json:"name"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate scenario YAML and profile CUE files",
		Long: `Validate files without running anything. Scenario files (.yaml, .yml)
are checked for unknown fields, missing stop steps and dangling source
references; profile files (.cue) are compiled and every pin configuration is
checked.

Example:
  reactor validate ./scenarios/periodic-tick.yaml
  reactor validate ./profiles/board.cue ./scenarios/*.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateFiles(rootOpts, args, cmd)
		},
	}

	return cmd
}

func validateFiles(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	setupLogging(opts)

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	summaries := make([]validateSummary, 0, len(paths))
	for _, path := range paths {
		summary, err := validateFile(path)
		if err != nil {
			formatter.Error(ErrCodeInvalidInput, err.Error(), nil)
			if _, unsupported := err.(*unsupportedExtensionError); unsupported {
				return WrapExitError(ExitCommandError, "cannot validate", err)
			}
			return WrapExitError(ExitFailure, fmt.Sprintf("invalid %s", filepath.Base(path)), err)
		}
		summaries = append(summaries, summary)
	}

	if opts.Format == "json" {
		return formatter.Success(summaries)
	}
	w := cmd.OutOrStdout()
	for _, s := range summaries {
		fmt.Fprintf(w, "%s %q is valid (%s)\n", s.Kind, s.Name, s.File)
	}
	return nil
}

// unsupportedExtensionError marks a file the validator cannot handle at all,
// as opposed to one that failed validation.
type unsupportedExtensionError struct {
	ext string
}

func (e *unsupportedExtensionError) Error() string {
	return fmt.Sprintf("unsupported file extension %q (want .yaml, .yml or .cue)", e.ext)
}

func validateFile(path string) (validateSummary, error) {
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		s, err := scenario.LoadScenario(path)
		if err != nil {
			return validateSummary{}, err
		}
		return validateSummary{File: path, Kind: "scenario", Name: s.Name}, nil
	case ".cue":
		p, err := profile.Load(path)
		if err != nil {
			return validateSummary{}, err
		}
		return validateSummary{File: path, Kind: "profile", Name: p.Name}, nil
	default:
		return validateSummary{}, &unsupportedExtensionError{ext: ext}
	}
}
