package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/liveset/internal/record"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Ordering string
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <position>...",
		Short: "Delete items by list position",
		Long: `Delete items at the given positions in the current listing.

Positions refer to the ordering selected with --ordering, matching the
output of "liveset list" under the same flag. Positions that no longer
exist are skipped.

Example:
  liveset delete 0 2
  liveset delete --ordering ascending 1`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ordering, "ordering", "unspecified",
		"sort order the positions refer to (unspecified|ascending|descending)")

	return cmd
}

func runDelete(opts *DeleteOptions, args []string, cmd *cobra.Command) error {
	var indices []int
	for _, arg := range args {
		i, err := strconv.Atoi(arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid position", fmt.Errorf("%q", arg))
		}
		indices = append(indices, i)
	}

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

	removed, err := s.DeleteAt(cmd.Context(), indices)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to delete", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return formatter.Success(fmt.Sprintf("deleted %d item(s)", removed))
}
