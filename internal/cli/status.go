package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liveset/internal/backend"
	"github.com/roach88/liveset/internal/sqlite"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
}

// statusData is the JSON payload of the status command.
type statusData struct {
	Path          string `json:"path"`
	SchemaVersion int    `json:"schema_version"`
	Items         int    `json:"items"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show database path, schema version, and item count",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	b, err := sqlite.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer b.Close()

	version, err := b.SchemaVersion()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read schema version", err)
	}
	all, err := b.ReadAll(cmd.Context(), backend.Query{})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read items", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(statusData{
			Path:          b.Path(),
			SchemaVersion: version,
			Items:         len(all),
		})
	}
	return formatter.Success(fmt.Sprintf("database: %s\nschema version: %d\nitems: %d",
		b.Path(), version, len(all)))
}
