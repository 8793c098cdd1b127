package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	defaultRepo     *gogit.Repository
	defaultRepoOnce sync.Once
	defaultRepoErr  error
)

// InitDefaultRepo opens the repository containing the current working directory.
// Safe to call more than once; the repository is opened a single time.
func InitDefaultRepo() error {
	defaultRepoOnce.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			defaultRepoErr = fmt.Errorf("failed to get working directory: %w", err)
			return
		}
		defaultRepo, defaultRepoErr = gogit.PlainOpenWithOptions(wd, &gogit.PlainOpenOptions{
			DetectDotGit: true,
		})
	})
	return defaultRepoErr
}

// GetDefaultRepo returns the opened repository
func GetDefaultRepo() (*gogit.Repository, error) {
	if err := InitDefaultRepo(); err != nil {
		return nil, err
	}
	return defaultRepo, nil
}

// GetRepoRoot returns the root directory of the Git repository
func GetRepoRoot() (string, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	return worktree.Filesystem.Root(), nil
}

// GetGitDir returns the path of the .git directory for the repository
func GetGitDir() (string, error) {
	out, err := RunGitCommand("rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return filepath.Clean(out), nil
}

// GetCurrentBranch returns the name of the checked-out branch.
// Returns an error when HEAD is detached.
func GetCurrentBranch() (string, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch")
	}
	return head.Name().Short(), nil
}

// GetHeadCommit returns the commit id HEAD currently points at
func GetHeadCommit() (string, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return "", err
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// BranchExists reports whether a local branch exists
func BranchExists(branchName string) (bool, error) {
	repo, err := GetDefaultRepo()
	if err != nil {
		return false, err
	}

	_, err = repo.Reference(plumbing.NewBranchReferenceName(branchName), true)
	if err == plumbing.ErrReferenceNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up branch %s: %w", branchName, err)
	}
	return true, nil
}

// GetDefaultBranch returns the default branch of the repository, derived from
// the remote HEAD when available and falling back to main/master.
func GetDefaultBranch(remote string) (string, error) {
	out, err := RunGitCommand("symbolic-ref", "--short", fmt.Sprintf("refs/remotes/%s/HEAD", remote))
	if err == nil && out != "" {
		return strings.TrimPrefix(out, remote+"/"), nil
	}

	for _, candidate := range []string{"main", "master"} {
		exists, err := BranchExists(candidate)
		if err != nil {
			return "", err
		}
		if exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not determine default branch")
}

// HasUncommittedChanges reports whether the working tree or index is dirty
func HasUncommittedChanges() (bool, error) {
	out, err := RunGitCommand("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}
