// Package cli defines the sg command surface. Commands are thin: they parse
// flags, build a runtime context and delegate to the engine, which returns
// typed results and errors.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sg",
		Short: "Sage keeps stacks of dependent branches rebased, pushed and undoable",
		Long: `Sage tracks stacks of dependent git branches and keeps them coherent:
restack rebases every branch onto its parent's current tip, sync pushes the
result with lease protection, and undo reverses the last recorded operation.`,
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newCreateCmd(),
		newTrackCmd(),
		newMoveCmd(),
		newUntrackCmd(),
		newRestackCmd(),
		newContinueCmd(),
		newAbortCmd(),
		newSyncCmd(),
		newUndoCmd(),
		newHistoryCmd(),
		newLogCmd(),
	)

	return rootCmd
}
