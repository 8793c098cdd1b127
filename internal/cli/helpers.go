package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sage.dev/sage/internal/git"
	"sage.dev/sage/internal/runtime"
)

// run wraps a command body with runtime context setup and teardown
func run(fn func(cmd *cobra.Command, args []string, ctx *runtime.Context) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, err := runtime.GetContext()
		if err != nil {
			return err
		}
		defer ctx.Close()
		return fn(cmd, args, ctx)
	}
}

// stackForArg resolves the stack to operate on: the explicit argument when
// given, otherwise the stack tracking the current branch.
func stackForArg(ctx *runtime.Context, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	branch, err := git.GetCurrentBranch()
	if err != nil {
		return "", err
	}
	g, err := ctx.Engine.LoadGraph()
	if err != nil {
		return "", err
	}
	if s, ok := g.StackFor(branch); ok {
		return s.Name(), nil
	}
	return "", fmt.Errorf("branch %s is not tracked in any stack; pass the stack name explicitly", branch)
}

// branchOrCurrent returns the named branch, or the checked-out branch when
// name is empty.
func branchOrCurrent(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	branch, err := git.GetCurrentBranch()
	if err != nil {
		return "", err
	}
	if branch == "" {
		return "", fmt.Errorf("not on a branch; name one explicitly")
	}
	return branch, nil
}
