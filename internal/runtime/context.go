// Package runtime wires a repository-scoped engine and logger together so
// commands share one setup path.
package runtime

import (
	"fmt"

	"sage.dev/sage/internal/config"
	"sage.dev/sage/internal/engine"
	"sage.dev/sage/internal/git"
	"sage.dev/sage/internal/output"
)

// Context carries the engine and logger for one command invocation
type Context struct {
	Engine   *engine.Engine
	Splog    *output.Splog
	RepoRoot string
	GitDir   string
	Trunk    string
	Remote   string
}

// GetContext locates the repository, requires 'sg init' to have run, and
// builds the engine from the repo config.
func GetContext() (*Context, error) {
	repoRoot, err := locateRepo()
	if err != nil {
		return nil, err
	}
	if !config.IsInitialized(repoRoot) {
		return nil, fmt.Errorf("sage is not initialized in this repository; run 'sg init' first")
	}
	return newContext(repoRoot)
}

// GetContextForInit builds a context without the initialization check. Only
// the init command uses this.
func GetContextForInit() (*Context, error) {
	repoRoot, err := locateRepo()
	if err != nil {
		return nil, err
	}
	return newContext(repoRoot)
}

func locateRepo() (string, error) {
	if err := git.InitDefaultRepo(); err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	repoRoot, err := git.GetRepoRoot()
	if err != nil {
		return "", fmt.Errorf("failed to get repo root: %w", err)
	}
	return repoRoot, nil
}

func newContext(repoRoot string) (*Context, error) {
	gitDir, err := git.GetGitDir()
	if err != nil {
		return nil, err
	}
	trunk, err := config.GetTrunk(repoRoot)
	if err != nil {
		return nil, err
	}
	remote, err := config.GetRemote(repoRoot)
	if err != nil {
		return nil, err
	}

	splog, err := output.NewSplogWithFile(engine.LogFilePath(gitDir))
	if err != nil {
		// The console still works without the file log
		splog = output.NewSplog()
		splog.Debug("file log unavailable: %v", err)
	}

	return &Context{
		Engine:   engine.New(repoRoot, gitDir, trunk, remote, splog),
		Splog:    splog,
		RepoRoot: repoRoot,
		GitDir:   gitDir,
		Trunk:    trunk,
		Remote:   remote,
	}, nil
}

// Close releases the context's resources
func (c *Context) Close() {
	_ = c.Splog.Close()
}
