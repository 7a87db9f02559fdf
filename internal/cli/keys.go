package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pocketfw/reactor/internal/hid"
)

// keyEntry is one resolved key name.
type keyEntry struct {
	Name string `json:"name"`
	Code string `json:"code"` // hex, e.g. "0x0528"
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys [name|combo...]",
		Short: "Resolve HID key names to usage codes",
		Long: `Resolve key names or + separated combos to packed HID codes, or list
every known name when called without arguments.

Example:
  reactor keys
  reactor keys ENTER CTRL+ALT+DELETE
  reactor keys GUI+l --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveKeys(rootOpts, args, cmd)
		},
	}

	return cmd
}

func resolveKeys(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var names []string
	if len(args) == 0 {
		names = hid.Names()
	} else {
		names = args
	}

	entries := make([]keyEntry, 0, len(names))
	for _, name := range names {
		code, err := hid.Combo(strings.Split(name, "+")...)
		if err != nil {
			formatter.Error(ErrCodeUnknownKey, err.Error(), nil)
			return WrapExitError(ExitFailure, "unknown key", err)
		}
		entries = append(entries, keyEntry{Name: name, Code: fmt.Sprintf("0x%04x", code)})
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}

	w := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(w, "%-14s %s\n", e.Name, e.Code)
	}
	return nil
}
