package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newUntrackCmd creates the untrack command
func newUntrackCmd() *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:          "untrack [branch]",
		Short:        "Stop tracking a branch in its stack",
		Long:         "Stop tracking a branch in its stack. The git branch itself is untouched. A branch with children is refused unless --cascade is given, in which case the children move up to the removed branch's parent.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, args []string, ctx *runtime.Context) error {
			branch := ""
			if len(args) > 0 {
				branch = args[0]
			}
			branch, err := branchOrCurrent(branch)
			if err != nil {
				return err
			}

			g, err := ctx.Engine.LoadGraph()
			if err != nil {
				return err
			}
			s, ok := g.StackFor(branch)
			if !ok {
				return fmt.Errorf("branch %s is not tracked in any stack", branch)
			}
			return ctx.Engine.RemoveBranch(cmd.Context(), s.Name(), branch, cascade)
		}),
	}

	cmd.Flags().BoolVar(&cascade, "cascade", false, "Reparent the branch's children to its parent instead of refusing.")

	return cmd
}
