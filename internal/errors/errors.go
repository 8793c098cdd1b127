// Package errors provides sentinel errors and custom error types for the sage application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrStackExists indicates that a stack with the given name is already tracked
	ErrStackExists = errors.New("stack already exists")

	// ErrStackNotFound indicates that no stack with the given name is tracked
	ErrStackNotFound = errors.New("stack not found")

	// ErrBranchNotFound indicates that a branch is not tracked in the stack
	ErrBranchNotFound = errors.New("branch not found")

	// ErrBranchTracked indicates that a branch is already tracked in a stack
	ErrBranchTracked = errors.New("branch already tracked")

	// ErrUnknownParent indicates that the requested parent is not part of the stack
	ErrUnknownParent = errors.New("unknown parent branch")

	// ErrCycleDetected indicates that an edge would make a branch its own ancestor
	ErrCycleDetected = errors.New("cycle detected")

	// ErrHasChildren indicates that a branch cannot be removed while children depend on it
	ErrHasChildren = errors.New("branch has children")

	// ErrGraphIntegrity indicates a corrupt or schema-mismatched graph file
	ErrGraphIntegrity = errors.New("graph integrity error")

	// ErrSessionInProgress indicates that a paused restack session blocks the operation
	ErrSessionInProgress = errors.New("restack session in progress")

	// ErrStaleSession indicates that the working tree moved since the session was written
	ErrStaleSession = errors.New("stale restack session")

	// ErrNoSession indicates that continue/abort was requested without a paused session
	ErrNoSession = errors.New("no restack session")

	// ErrGitOperationFailed indicates an adapter-level git failure (e.g. dirty working tree)
	ErrGitOperationFailed = errors.New("git operation failed")

	// ErrPushRejected indicates that a lease-protected push was rejected by the remote
	ErrPushRejected = errors.New("push rejected")

	// ErrLockContention indicates that another sg process holds the stack lock
	ErrLockContention = errors.New("lock contention")

	// ErrConcurrentModification indicates that a ref moved since the undo entry was recorded
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrNothingToUndo indicates that the requested history entry was already undone
	ErrNothingToUndo = errors.New("nothing to undo")
)

// GraphIntegrityError reports a structural problem with the persisted stack graph
type GraphIntegrityError struct {
	Path    string
	Message string
	Err     error
}

func (e *GraphIntegrityError) Error() string {
	msg := fmt.Sprintf("stack graph %s is not usable: %s", e.Path, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Is returns true if the target error is ErrGraphIntegrity
func (e *GraphIntegrityError) Is(target error) bool {
	return target == ErrGraphIntegrity
}

func (e *GraphIntegrityError) Unwrap() error {
	return e.Err
}

// NewGraphIntegrityError creates a new GraphIntegrityError
func NewGraphIntegrityError(path, message string, err error) *GraphIntegrityError {
	return &GraphIntegrityError{Path: path, Message: message, Err: err}
}

// CycleError reports an edge that would make a branch its own ancestor
type CycleError struct {
	StackName string
	Branch    string
	Parent    string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cannot make %s the parent of %s in stack %s: %s is a descendant of %s",
		e.Parent, e.Branch, e.StackName, e.Parent, e.Branch)
}

// Is returns true if the target error is ErrCycleDetected
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// NewCycleError creates a new CycleError
func NewCycleError(stackName, branch, parent string) *CycleError {
	return &CycleError{StackName: stackName, Branch: branch, Parent: parent}
}

// SessionInProgressError reports a paused restack session blocking a mutating operation
type SessionInProgressError struct {
	StackName string
	Branch    string // branch the session is paused on
}

func (e *SessionInProgressError) Error() string {
	return fmt.Sprintf("a restack of stack %s is paused on branch %s; run 'sg continue' after resolving conflicts or 'sg abort' to unwind it",
		e.StackName, e.Branch)
}

// Is returns true if the target error is ErrSessionInProgress
func (e *SessionInProgressError) Is(target error) bool {
	return target == ErrSessionInProgress
}

// NewSessionInProgressError creates a new SessionInProgressError
func NewSessionInProgressError(stackName, branch string) *SessionInProgressError {
	return &SessionInProgressError{StackName: stackName, Branch: branch}
}

// StaleSessionError reports that HEAD moved out-of-band since the session was written
type StaleSessionError struct {
	StackName    string
	ExpectedHead string
	ActualHead   string
}

func (e *StaleSessionError) Error() string {
	return fmt.Sprintf("the paused restack of stack %s expected HEAD at %s but found %s; the working tree changed outside sg, run 'sg abort' to discard the session",
		e.StackName, e.ExpectedHead, e.ActualHead)
}

// Is returns true if the target error is ErrStaleSession
func (e *StaleSessionError) Is(target error) bool {
	return target == ErrStaleSession
}

// NewStaleSessionError creates a new StaleSessionError
func NewStaleSessionError(stackName, expected, actual string) *StaleSessionError {
	return &StaleSessionError{StackName: stackName, ExpectedHead: expected, ActualHead: actual}
}

// PushRejectedError reports a lease-protected push rejected by the remote
type PushRejectedError struct {
	Branch string
	Err    error
}

func (e *PushRejectedError) Error() string {
	return fmt.Sprintf("push of %s rejected: the remote branch moved since it was last observed; run 'sg sync' to pick up the remote changes", e.Branch)
}

// Is returns true if the target error is ErrPushRejected
func (e *PushRejectedError) Is(target error) bool {
	return target == ErrPushRejected
}

func (e *PushRejectedError) Unwrap() error {
	return e.Err
}

// NewPushRejectedError creates a new PushRejectedError
func NewPushRejectedError(branch string, err error) *PushRejectedError {
	return &PushRejectedError{Branch: branch, Err: err}
}

// LockContentionError reports that another process holds the per-stack lock
type LockContentionError struct {
	StackName string
	LockPath  string
}

func (e *LockContentionError) Error() string {
	return fmt.Sprintf("another sg process is operating on stack %s (lock %s held); retry once it finishes", e.StackName, e.LockPath)
}

// Is returns true if the target error is ErrLockContention
func (e *LockContentionError) Is(target error) bool {
	return target == ErrLockContention
}

// NewLockContentionError creates a new LockContentionError
func NewLockContentionError(stackName, lockPath string) *LockContentionError {
	return &LockContentionError{StackName: stackName, LockPath: lockPath}
}

// ConcurrentModificationError reports a ref that moved since an undo entry was recorded
type ConcurrentModificationError struct {
	Ref      string
	Expected string
	Actual   string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("cannot undo: ref %s is at %s but the history entry expects %s; no refs were changed",
		e.Ref, e.Actual, e.Expected)
}

// Is returns true if the target error is ErrConcurrentModification
func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// NewConcurrentModificationError creates a new ConcurrentModificationError
func NewConcurrentModificationError(ref, expected, actual string) *ConcurrentModificationError {
	return &ConcurrentModificationError{Ref: ref, Expected: expected, Actual: actual}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s %s", e.Command, strings.Join(e.Args, " "))
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

// Is returns true if the target error is ErrGitOperationFailed
func (e *GitCommandError) Is(target error) bool {
	return target == ErrGitOperationFailed
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
