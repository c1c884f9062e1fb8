package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the item list live as it changes",
		Long: `Subscribe to the database and reprint the item list whenever it
changes, until interrupted. Writes made by other processes to the same
database file are picked up on their next observation.

Example:
  liveset watch --db ./items.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	s, b, err := openStore(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer b.Close()
	defer s.Close()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	changed := make(chan struct{}, 1)
	s.SetOnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.WaitReady(ctx); err != nil {
		return WrapExitError(ExitFailure, "timed out waiting for snapshot", err)
	}
	if err := formatter.Items(s.Current()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout(), "watch stopped")
			return nil
		case <-changed:
			if err := formatter.Items(s.Current()); err != nil {
				return err
			}
		}
	}
}
