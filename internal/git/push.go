package git

import (
	"context"
	"fmt"
	"strings"

	sageerrors "sage.dev/sage/internal/errors"
)

// PushBranch pushes a branch with a lease against the expected remote tip.
// expectedRemoteTip is the commit id the remote branch was last observed at;
// an empty string means the branch is not expected to exist on the remote yet.
// The push fails with ErrPushRejected if the remote moved in the meantime.
func PushBranch(ctx context.Context, remote, branchName, expectedRemoteTip string) error {
	lease := fmt.Sprintf("--force-with-lease=%s:%s", branchName, expectedRemoteTip)
	if expectedRemoteTip == "" {
		// No recorded remote tip: require that the remote ref does not exist
		lease = fmt.Sprintf("--force-with-lease=%s:", branchName)
	}

	_, err := RunGitCommandWithContext(ctx, "push", "-u", remote, lease, branchName)
	if err != nil {
		if isLeaseRejection(err) {
			return sageerrors.NewPushRejectedError(branchName, err)
		}
		return fmt.Errorf("failed to push branch %s: %w", branchName, err)
	}
	return nil
}

// isLeaseRejection detects a --force-with-lease rejection from git's output
func isLeaseRejection(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "stale info") || strings.Contains(msg, "[rejected]")
}

// Fetch updates remote-tracking refs from the given remote
func Fetch(ctx context.Context, remote string) error {
	_, err := RunGitCommandWithContext(ctx, "fetch", "--prune", remote)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", remote, err)
	}
	return nil
}
