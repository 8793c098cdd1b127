package git

import (
	"context"
	"fmt"
	"os"
)

// RebaseResult represents the result of a rebase operation
type RebaseResult int

const (
	// RebaseDone indicates the rebase was successful
	RebaseDone RebaseResult = iota
	// RebaseConflict indicates a conflict occurred during rebase
	RebaseConflict
)

// RebaseOutcome carries the result of a rebase plus the new tip on success
type RebaseOutcome struct {
	Result RebaseResult
	NewTip string // commit id of the rebased branch, set when Result is RebaseDone
}

// Rebase replays the commits of branchName that sit on top of oldBase onto
// newBase, then points the branch ref at the result.
//
// The rebase runs on a detached HEAD so it never fights the checked-out
// worktree, and the original HEAD is restored afterwards. A conflict leaves
// git's rebase state in place for the caller to continue or abort.
func Rebase(ctx context.Context, branchName, newBase, oldBase string) (RebaseOutcome, error) {
	currentBranch, err := GetCurrentBranch()
	var currentRev string
	if err != nil {
		currentBranch = ""
		currentRev, _ = RunGitCommandWithContext(ctx, "rev-parse", "HEAD")
	}

	branchRev, err := RunGitCommandWithContext(ctx, "rev-parse", branchName)
	if err != nil {
		return RebaseOutcome{Result: RebaseConflict}, fmt.Errorf("failed to get revision for %s: %w", branchName, err)
	}

	// git rebase --onto <newBase> <oldBase> <branchRev> leaves a detached HEAD
	// at the rebased commit.
	_, err = RunGitCommandWithContext(ctx, "rebase", "--onto", newBase, oldBase, branchRev)
	if err != nil {
		if IsRebaseInProgress(ctx) {
			return RebaseOutcome{Result: RebaseConflict}, nil
		}
		// Failed for a reason other than conflicts (e.g. dirty tree); put the
		// worktree back and surface the error.
		_, _ = RunGitCommandWithContext(ctx, "rebase", "--abort")
		restoreHead(ctx, currentBranch, currentRev)
		return RebaseOutcome{Result: RebaseConflict}, err
	}

	newRev, err := RunGitCommandWithContext(ctx, "rev-parse", "HEAD")
	if err != nil {
		return RebaseOutcome{Result: RebaseConflict}, fmt.Errorf("failed to get new revision after rebase: %w", err)
	}

	if err := ForceResetRef(ctx, branchName, newRev, fmt.Sprintf("sage: restack %s", branchName)); err != nil {
		return RebaseOutcome{Result: RebaseConflict}, err
	}

	restoreHead(ctx, currentBranch, currentRev)
	return RebaseOutcome{Result: RebaseDone, NewTip: newRev}, nil
}

func restoreHead(ctx context.Context, branchName, rev string) {
	if branchName != "" {
		if _, err := RunGitCommandWithContext(ctx, "checkout", branchName); err != nil {
			_, _ = RunGitCommandWithContext(ctx, "checkout", "--detach", branchName)
		}
	} else if rev != "" {
		_, _ = RunGitCommandWithContext(ctx, "checkout", "--detach", rev)
	}
}

// IsRebaseInProgress checks if a rebase is currently in progress
func IsRebaseInProgress(ctx context.Context) bool {
	// Check for .git/rebase-merge or .git/rebase-apply directories.
	// This is more reliable than REBASE_HEAD which can persist after a rebase.
	gitDir, err := RunGitCommandWithContext(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}

	if _, err := os.Stat(gitDir + "/rebase-merge"); err == nil {
		return true
	}
	if _, err := os.Stat(gitDir + "/rebase-apply"); err == nil {
		return true
	}
	return false
}

// HasUnresolvedConflicts reports whether the index still contains unmerged paths
func HasUnresolvedConflicts(ctx context.Context) (bool, error) {
	out, err := RunGitCommandWithContext(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// RebaseContinue continues an in-progress rebase
func RebaseContinue(ctx context.Context) (RebaseOutcome, error) {
	_, err := RunGitCommandWithContext(ctx, "-c", "core.editor=true", "rebase", "--continue")
	if err != nil {
		// Another conflict further along the commit range
		if IsRebaseInProgress(ctx) {
			return RebaseOutcome{Result: RebaseConflict}, nil
		}
		return RebaseOutcome{Result: RebaseConflict}, fmt.Errorf("rebase continue failed: %w", err)
	}

	newRev, err := RunGitCommandWithContext(ctx, "rev-parse", "HEAD")
	if err != nil {
		return RebaseOutcome{Result: RebaseConflict}, fmt.Errorf("failed to get revision after rebase continue: %w", err)
	}
	return RebaseOutcome{Result: RebaseDone, NewTip: newRev}, nil
}

// RebaseAbort aborts an in-progress rebase
func RebaseAbort(ctx context.Context) error {
	_, err := RunGitCommandWithContext(ctx, "rebase", "--abort")
	if err != nil {
		return fmt.Errorf("rebase abort failed: %w", err)
	}
	return nil
}
