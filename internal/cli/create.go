package cli

import (
	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newCreateCmd creates the create command
func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "create <stack> [root-branch]",
		Short:        "Create a new stack rooted at a branch based on the trunk",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, args []string, ctx *runtime.Context) error {
			rootBranch := ""
			if len(args) > 1 {
				rootBranch = args[1]
			}
			rootBranch, err := branchOrCurrent(rootBranch)
			if err != nil {
				return err
			}
			return ctx.Engine.InitStack(cmd.Context(), args[0], rootBranch)
		}),
	}

	return cmd
}
