package cli

import (
	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newAbortCmd creates the abort command
func newAbortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "abort [stack]",
		Short:        "Abort a paused restack and restore the stack's pre-run state",
		Long:         "Abort a restack that paused on a conflict. The in-progress rebase is aborted and every branch in the stack is reset to the tip it had before the run started.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, args []string, ctx *runtime.Context) error {
			stack, err := stackForArg(ctx, args)
			if err != nil {
				return err
			}
			return ctx.Engine.AbortRestack(cmd.Context(), stack)
		}),
	}

	return cmd
}
