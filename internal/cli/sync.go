package cli

import (
	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newSyncCmd creates the sync command
func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sync [stack]",
		Short:        "Fetch, restack and push the stack",
		Long: `Fetch the remote, restack every branch in the stack, then push the branches
whose tips moved, parents before children. Each push carries a lease against
the last remote tip sage saw, so a concurrent push by someone else rejects the
sync instead of being clobbered.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, args []string, ctx *runtime.Context) error {
			stack, err := stackForArg(ctx, args)
			if err != nil {
				return err
			}
			_, err = ctx.Engine.Sync(cmd.Context(), stack)
			return err
		}),
	}

	return cmd
}
