// Package session persists the state of a restack that was interrupted by a
// merge conflict, so the run can survive process exit and be resumed with
// 'sg continue' or unwound with 'sg abort'.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sageerrors "sage.dev/sage/internal/errors"
)

// State is the lifecycle state of a restack session
type State string

// Idle is the absence of a session file; Completed runs clear their session
// before returning, so only these two states are ever persisted.
const (
	// StateRunning means the restack is executing in this process
	StateRunning State = "running"
	// StateConflicted means the restack paused on a merge conflict
	StateConflicted State = "conflicted"
)

// BranchSnapshot records one branch's pre-run state, by value. Abort restores
// from these; they stay valid even if the graph is mutated or reloaded.
type BranchSnapshot struct {
	Branch     string `json:"branch"`
	Tip        string `json:"tip"`        // branch tip before the run
	BaseCommit string `json:"baseCommit"` // node base_commit before the run
	WasDirty   bool   `json:"wasDirty,omitempty"`
}

// Session is the durable record of an in-progress restack
type Session struct {
	StackName    string           `json:"stackName"`
	Queue        []string         `json:"queue"` // topological order captured at start
	CurrentIndex int              `json:"currentIndex"`
	State        State            `json:"state"`
	HeadGuard    string           `json:"headGuard"`   // HEAD commit id when the session was persisted
	PendingBase  string           `json:"pendingBase"` // new parent tip for the conflicted branch
	Snapshots    []BranchSnapshot `json:"snapshots"`
	// GraphBefore is the raw graph file content captured before the run, so a
	// completed continue can still record a reversible history entry.
	GraphBefore string    `json:"graphBefore,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CurrentBranch returns the branch the session is paused on
func (s *Session) CurrentBranch() string {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return ""
	}
	return s.Queue[s.CurrentIndex]
}

// Snapshot returns the pre-run snapshot for a branch
func (s *Session) Snapshot(branch string) (BranchSnapshot, bool) {
	for _, snap := range s.Snapshots {
		if snap.Branch == branch {
			return snap, true
		}
	}
	return BranchSnapshot{}, false
}

// Store reads and writes session files under <gitDir>/sage/
type Store struct {
	gitDir string
}

// NewStore creates a session store for the given .git directory
func NewStore(gitDir string) *Store {
	return &Store{gitDir: gitDir}
}

func (st *Store) path(stackName string) string {
	return filepath.Join(st.gitDir, "sage", fmt.Sprintf("session-%s.json", stackName))
}

// Exists reports whether a session file is present for the stack
func (st *Store) Exists(stackName string) bool {
	_, err := os.Stat(st.path(stackName))
	return err == nil
}

// Load reads the session for a stack. Returns ErrNoSession when none exists.
func (st *Store) Load(stackName string) (*Session, error) {
	data, err := os.ReadFile(st.path(stackName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sageerrors.ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session for stack %s: %w", stackName, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session for stack %s: %w", stackName, err)
	}
	return &s, nil
}

// Save writes the session to disk
func (st *Store) Save(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(st.path(s.StackName)), 0o750); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(st.path(s.StackName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write session for stack %s: %w", s.StackName, err)
	}
	return nil
}

// Clear removes the session file for a stack; clearing a missing session is not an error
func (st *Store) Clear(stackName string) error {
	err := os.Remove(st.path(stackName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session for stack %s: %w", stackName, err)
	}
	return nil
}
