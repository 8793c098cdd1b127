package cli

import (
	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newUndoCmd creates the undo command
func newUndoCmd() *cobra.Command {
	var id int64

	cmd := &cobra.Command{
		Use:          "undo",
		Short:        "Reverse the most recent recorded operation",
		Long: `Reverse a recorded operation: every affected branch is reset to the commit
it pointed at before the operation, and the stack graph is restored to match.

Undo refuses to run if any affected branch has moved since the operation was
recorded, so it never clobbers unrelated manual changes. Use 'sg history' to
pick a specific entry by id.`,
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, _ []string, ctx *runtime.Context) error {
			return ctx.Engine.Undo(cmd.Context(), id)
		}),
	}

	cmd.Flags().Int64Var(&id, "id", 0, "History entry to undo. Defaults to the newest entry not yet undone.")

	return cmd
}
