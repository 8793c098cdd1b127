package cli

import (
	"github.com/spf13/cobra"

	"sage.dev/sage/internal/config"
	"sage.dev/sage/internal/git"
	"sage.dev/sage/internal/runtime"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var (
		trunk  string
		remote string
	)

	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Initialize sage in the current repository",
		Long:         "Initialize sage in the current repository, recording the trunk branch and remote that stacks are based on and synced to.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := runtime.GetContextForInit()
			if err != nil {
				return err
			}
			defer ctx.Close()

			if remote == "" {
				remote = "origin"
			}
			if trunk == "" {
				trunk, err = git.GetDefaultBranch(remote)
				if err != nil {
					return err
				}
			}

			cfg := &config.RepoConfig{Trunk: &trunk, Remote: &remote}
			if err := config.WriteRepoConfig(ctx.RepoRoot, cfg); err != nil {
				return err
			}

			ctx.Splog.Info("initialized sage: trunk %s, remote %s", trunk, remote)
			ctx.Splog.Tip("run 'sg create <stack> [branch]' to start a stack")
			return nil
		},
	}

	cmd.Flags().StringVar(&trunk, "trunk", "", "Trunk branch stacks are based on. Defaults to the remote's default branch.")
	cmd.Flags().StringVar(&remote, "remote", "origin", "Remote that sync pushes to.")

	return cmd
}
