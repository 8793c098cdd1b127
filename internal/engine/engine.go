// Package engine implements the core of sage: the restack scheduler that
// walks a stack in topological order and rebases each branch onto its
// parent's current tip, the sync orchestrator that composes fetch, restack
// and lease-protected pushes, the durable pause/resume handling for conflicted
// runs, and the undo entry points over the history ledger.
package engine

import (
	"fmt"
	"path/filepath"

	sageerrors "sage.dev/sage/internal/errors"
	"sage.dev/sage/internal/graph"
	"sage.dev/sage/internal/ledger"
	"sage.dev/sage/internal/lock"
	"sage.dev/sage/internal/output"
	"sage.dev/sage/internal/session"
)

// Engine owns the stores and the git adapter for one repository
type Engine struct {
	repoRoot string
	gitDir   string
	trunk    string
	remote   string

	git      GitRunner
	store    *graph.Store
	sessions *session.Store
	history  *ledger.Ledger
	splog    *output.Splog
}

// New creates an engine for the repository rooted at repoRoot
func New(repoRoot, gitDir, trunk, remote string, splog *output.Splog) *Engine {
	return &Engine{
		repoRoot: repoRoot,
		gitDir:   gitDir,
		trunk:    trunk,
		remote:   remote,
		git:      &realGitRunner{},
		store:    graph.NewStore(gitDir),
		sessions: session.NewStore(gitDir),
		history:  ledger.New(gitDir),
		splog:    splog,
	}
}

// NewWithRunner creates an engine with a custom git runner. Used by tests.
func NewWithRunner(gitDir, trunk, remote string, runner GitRunner, splog *output.Splog) *Engine {
	return &Engine{
		gitDir:   gitDir,
		trunk:    trunk,
		remote:   remote,
		git:      runner,
		store:    graph.NewStore(gitDir),
		sessions: session.NewStore(gitDir),
		history:  ledger.New(gitDir),
		splog:    splog,
	}
}

// Remote returns the remote the engine pushes to
func (e *Engine) Remote() string { return e.remote }

// Trunk returns the trunk branch new stacks are rooted on
func (e *Engine) Trunk() string { return e.trunk }

// LogFilePath returns the rotating log file location for this repository
func LogFilePath(gitDir string) string {
	return filepath.Join(gitDir, "sage", "logs", "sg.log")
}

// LoadGraph reads the stack graph from disk
func (e *Engine) LoadGraph() (*graph.Graph, error) {
	return e.store.Load()
}

// lockStack acquires the per-stack mutation lock. The caller must defer the
// returned release on every path.
func (e *Engine) lockStack(stackName string) (*lock.StackLock, error) {
	l := lock.New(e.gitDir, stackName)
	if err := l.Acquire(); err != nil {
		return nil, err
	}
	return l, nil
}

// ensureNoSession fails with SessionInProgress when a paused restack exists
// for the stack. Every mutating operation other than continue/abort calls
// this first.
func (e *Engine) ensureNoSession(stackName string) error {
	if !e.sessions.Exists(stackName) {
		return nil
	}
	sess, err := e.sessions.Load(stackName)
	if err != nil {
		return err
	}
	return sageerrors.NewSessionInProgressError(stackName, sess.CurrentBranch())
}

// snapshotRefs resolves each branch to a by-value (ref, commit) pair
func (e *Engine) snapshotRefs(branches []string) ([]ledger.RefState, error) {
	refs := make([]ledger.RefState, 0, len(branches))
	for _, branch := range branches {
		commit, err := e.git.ResolveRef(branch)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", branch, err)
		}
		refs = append(refs, ledger.RefState{Ref: branch, Commit: commit})
	}
	return refs, nil
}

// record appends a history entry once the operation it describes succeeded
func (e *Engine) record(kind ledger.Kind, stackName string, before, after []ledger.RefState, graphBefore []byte) {
	_, err := e.history.Append(ledger.Entry{
		Kind:        kind,
		StackName:   stackName,
		RefsBefore:  before,
		RefsAfter:   after,
		GraphBefore: string(graphBefore),
	})
	if err != nil {
		// History is best-effort bookkeeping; the operation itself succeeded
		e.splog.Warn("failed to record history entry: %v", err)
	}
}
