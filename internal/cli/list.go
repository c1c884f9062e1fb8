package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/liveset/internal/record"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Ordering string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all items",
		Long: `List all items in the database.

Positions printed in the first column are the ones the delete command
accepts, under the same ordering.

Example:
  liveset list --db ./items.db
  liveset list --ordering ascending --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ordering, "ordering", "unspecified",
		"sort order (unspecified|ascending|descending)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	ordering, ok := record.ParseOrdering(opts.Ordering)
	if !ok {
		return WrapExitError(ExitCommandError, "invalid ordering", fmt.Errorf("%q", opts.Ordering))
	}

	s, b, err := openStore(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer b.Close()
	defer s.Close()

	if ordering != record.OrderingUnspecified {
		if err := s.SetOrdering(ordering); err != nil {
			return WrapExitError(ExitFailure, "failed to set ordering", err)
		}
	}
	if err := s.WaitReady(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "timed out waiting for snapshot", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return formatter.Items(s.Current())
}
