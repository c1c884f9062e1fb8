package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/liveset/internal/collection"
	"github.com/roach88/liveset/internal/sqlite"
)

// openStore opens the durable backend at the configured path and builds a
// collection store over it. Callers close both when done. Each CLI
// invocation is its own short-lived process, so commands open an explicit
// instance rather than the process-shared one an embedding app would use.
func openStore(opts *RootOptions, cmd *cobra.Command) (*collection.Store, *sqlite.Backend, error) {
	logger := newLogger(opts)

	b, err := sqlite.Open(opts.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s, err := collection.New(b, logger)
	if err != nil {
		b.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return s, b, nil
}

// newLogger configures slog output based on the verbose flag. Logs go to
// stderr so JSON output on stdout stays parseable.
func newLogger(opts *RootOptions) *slog.Logger {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
