package cli

import (
	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newRestackCmd creates the restack command
func newRestackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "restack [stack]",
		Short:        "Rebase every branch in the stack onto its parent's current tip",
		Long: `Rebase every branch in the stack onto its parent's current tip, parents
before children. Branches already in place are skipped, so rerunning over an
unchanged stack does nothing.

If a rebase hits conflicts the run pauses; resolve them and run 'sg continue',
or 'sg abort' to put every branch back where it was.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, args []string, ctx *runtime.Context) error {
			stack, err := stackForArg(ctx, args)
			if err != nil {
				return err
			}
			_, err = ctx.Engine.Restack(cmd.Context(), stack)
			return err
		}),
	}

	return cmd
}
