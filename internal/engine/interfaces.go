package engine

import (
	"context"

	"sage.dev/sage/internal/git"
)

// GitRunner defines the interface for git operations used by the engine.
// This allows the engine to be used with both real git and mock implementations.
type GitRunner interface {
	// Refs and repository state
	ResolveRef(name string) (string, error)
	BranchExists(branchName string) (bool, error)
	Head() (string, error)
	HasUncommittedChanges() (bool, error)
	ForceResetRef(ctx context.Context, branchName, commitID, reason string) error
	CheckoutBranch(ctx context.Context, branchName string) error

	// Rebase machinery
	Rebase(ctx context.Context, branchName, newBase, oldBase string) (git.RebaseOutcome, error)
	RebaseContinue(ctx context.Context) (git.RebaseOutcome, error)
	RebaseAbort(ctx context.Context) error
	IsRebaseInProgress(ctx context.Context) bool
	HasUnresolvedConflicts(ctx context.Context) (bool, error)

	// Remote operations
	Fetch(ctx context.Context, remote string) error
	PushBranch(ctx context.Context, remote, branchName, expectedRemoteTip string) error
	GetRemoteTrackingRevision(remote, branchName string) (string, error)
}

// realGitRunner implements GitRunner by calling the actual git package functions
type realGitRunner struct{}

func (r *realGitRunner) ResolveRef(name string) (string, error) {
	return git.ResolveRef(name)
}

func (r *realGitRunner) BranchExists(branchName string) (bool, error) {
	return git.BranchExists(branchName)
}

func (r *realGitRunner) Head() (string, error) {
	return git.GetHeadCommit()
}

func (r *realGitRunner) HasUncommittedChanges() (bool, error) {
	return git.HasUncommittedChanges()
}

func (r *realGitRunner) ForceResetRef(ctx context.Context, branchName, commitID, reason string) error {
	return git.ForceResetRef(ctx, branchName, commitID, reason)
}

func (r *realGitRunner) CheckoutBranch(ctx context.Context, branchName string) error {
	return git.CheckoutBranch(ctx, branchName)
}

func (r *realGitRunner) Rebase(ctx context.Context, branchName, newBase, oldBase string) (git.RebaseOutcome, error) {
	return git.Rebase(ctx, branchName, newBase, oldBase)
}

func (r *realGitRunner) RebaseContinue(ctx context.Context) (git.RebaseOutcome, error) {
	return git.RebaseContinue(ctx)
}

func (r *realGitRunner) RebaseAbort(ctx context.Context) error {
	return git.RebaseAbort(ctx)
}

func (r *realGitRunner) IsRebaseInProgress(ctx context.Context) bool {
	return git.IsRebaseInProgress(ctx)
}

func (r *realGitRunner) HasUnresolvedConflicts(ctx context.Context) (bool, error) {
	return git.HasUnresolvedConflicts(ctx)
}

func (r *realGitRunner) Fetch(ctx context.Context, remote string) error {
	return git.Fetch(ctx, remote)
}

func (r *realGitRunner) PushBranch(ctx context.Context, remote, branchName, expectedRemoteTip string) error {
	return git.PushBranch(ctx, remote, branchName, expectedRemoteTip)
}

func (r *realGitRunner) GetRemoteTrackingRevision(remote, branchName string) (string, error) {
	return git.GetRemoteTrackingRevision(remote, branchName)
}
