package git

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// ResolveRef resolves a ref name (branch, tag, SHA, HEAD) to a commit id
func ResolveRef(name string) (string, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return "", err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	return hash.String(), nil
}

// ForceResetRef points refs/heads/<branch> at the given commit id without
// touching the working tree. The reflog message records that sage moved it.
func ForceResetRef(ctx context.Context, branchName, commitID, reason string) error {
	refName := "refs/heads/" + branchName
	if reason == "" {
		reason = "sage: reset"
	}
	_, err := RunGitCommandWithContext(ctx, "update-ref", "-m", reason, refName, commitID)
	if err != nil {
		return fmt.Errorf("failed to reset %s to %s: %w", refName, commitID, err)
	}
	return nil
}

// GetRemoteTrackingRevision returns the commit id of refs/remotes/<remote>/<branch>,
// or an empty string if no remote-tracking ref exists.
func GetRemoteTrackingRevision(remote, branchName string) (string, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return "", err
	}

	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(remote, branchName), true)
	if err == plumbing.ErrReferenceNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up %s/%s: %w", remote, branchName, err)
	}
	return ref.Hash().String(), nil
}

// CheckoutBranch checks out the given branch
func CheckoutBranch(ctx context.Context, branchName string) error {
	_, err := RunGitCommandWithContext(ctx, "checkout", branchName)
	if err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branchName, err)
	}
	return nil
}
