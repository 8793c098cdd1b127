package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sage.dev/sage/internal/output"
	"sage.dev/sage/internal/runtime"
)

// newHistoryCmd creates the history command
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "history",
		Short:        "List recorded operations, newest first",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: run(func(cmd *cobra.Command, _ []string, ctx *runtime.Context) error {
			entries, err := ctx.Engine.History()
			if err != nil {
				return err
			}

			count := 0
			for entry := range entries {
				count++
				line := fmt.Sprintf("#%-4d %-13s %-12s %s",
					entry.ID, entry.Kind, entry.StackName,
					entry.Timestamp.Format("2006-01-02 15:04:05"))
				if entry.Applied {
					line += output.ColorDim(" (undone)")
				}
				fmt.Println(line)
			}
			if count == 0 {
				ctx.Splog.Info("no recorded operations yet")
			}
			return nil
		}),
	}

	return cmd
}
