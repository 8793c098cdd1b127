package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sage.dev/sage/internal/runtime"
)

// newTrackCmd creates the track command
func newTrackCmd() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:          "track [branch]",
		Short:        "Track a branch as a child of another branch in its stack",
		Long:         "Track a branch as a child of another branch in its stack. The parent's current tip is recorded as the branch's base, so a branch created directly off its parent is immediately in place.",
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
			if parent == "" {
				return fmt.Errorf("--parent is required")
			}

			g, err := ctx.Engine.LoadGraph()
			if err != nil {
				return err
			}
			s, ok := g.StackFor(parent)
			if !ok {
				return fmt.Errorf("parent %s is not tracked in any stack", parent)
			}
			return ctx.Engine.AddBranch(cmd.Context(), s.Name(), branch, parent)
		}),
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "Branch to stack on top of. Required.")
	_ = cmd.MarkFlagRequired("parent")

	return cmd
}
