package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sage.dev/sage/internal/git"
	"sage.dev/sage/internal/output"
	"sage.dev/sage/internal/runtime"
)

// newLogCmd creates the log command
func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "log [stack]",
		Short:        "Show tracked stacks as trees",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, args []string, ctx *runtime.Context) error {
			g, err := ctx.Engine.LoadGraph()
			if err != nil {
				return err
			}

			currentBranch, err := git.GetCurrentBranch()
			if err != nil {
				currentBranch = ""
			}

			names := g.StackNames()
			if len(args) > 0 {
				names = args[:1]
			}
			if len(names) == 0 {
				ctx.Splog.Info("no stacks tracked yet")
				ctx.Splog.Tip("run 'sg create <stack> [branch]' to start one")
				return nil
			}

			for i, name := range names {
				s, err := g.Stack(name)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Println()
				}
				fmt.Println(output.ColorGreen(name))
				for _, line := range output.RenderStack(s, currentBranch) {
					fmt.Println(line)
				}
			}
			return nil
		}),
	}

	return cmd
}
