package cli

import (
	"github.com/spf13/cobra"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Quantity int64
	Notes    string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new item",
		Long: `Add a new item through an edit session.

The write goes through the same transactional path the UI uses: a blank
draft is filled in and committed. An all-blank draft is a silent no-op.

Example:
  liveset add "Coffee" --quantity 2 --notes "dark roast"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Quantity, "quantity", -1, "item quantity (omit for unspecified)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free-form notes")

	return cmd
}

func runAdd(opts *AddOptions, name string, cmd *cobra.Command) error {
	s, b, err := openStore(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer b.Close()
	defer s.Close()

	sess := s.NewBlankSession()
	sess.Name = name
	sess.Notes = opts.Notes
	if cmd.Flags().Changed("quantity") {
		sess.SetQuantity(opts.Quantity)
	}

	if err := sess.Save(cmd.Context()); err != nil {
		return WrapExitError(ExitFailure, "failed to save item", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return formatter.Success("added " + name)
}
