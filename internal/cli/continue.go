package cli

import (
	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newContinueCmd creates the continue command
func newContinueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "continue [stack]",
		Short:        "Resume a restack that paused on a conflict",
		Long:         "Resume a restack that paused on a conflict. Requires the conflicts to be resolved and staged; the paused branch is finished first, then the rest of the stack.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, args []string, ctx *runtime.Context) error {
			stack, err := stackForArg(ctx, args)
			if err != nil {
				return err
			}
			_, err = ctx.Engine.ContinueRestack(cmd.Context(), stack)
			return err
		}),
	}

	return cmd
}
