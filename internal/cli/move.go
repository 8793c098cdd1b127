package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newMoveCmd creates the move command
func newMoveCmd() *cobra.Command {
	var onto string

	cmd := &cobra.Command{
		Use:          "move [branch]",
		Short:        "Move a branch (and its descendants) under a new parent",
		Long:         "Move a branch under a new parent within its stack. The branch and its descendants are marked for restacking; run 'sg restack' to rewrite them onto the new parent.",
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
			return ctx.Engine.Reparent(cmd.Context(), s.Name(), branch, onto)
		}),
	}

	cmd.Flags().StringVar(&onto, "onto", "", "New parent branch. Required.")
	_ = cmd.MarkFlagRequired("onto")

	return cmd
}
