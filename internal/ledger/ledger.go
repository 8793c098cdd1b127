// Package ledger records a reversible descriptor for every mutating operation
// so 'sg undo' can put the affected refs back where they were.
package ledger

import (
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"time"

	sageerrors "sage.dev/sage/internal/errors"
)

// Kind identifies the operation a history entry reverses
type Kind string

const (
	KindCreateStack  Kind = "create-stack"
	KindAddBranch    Kind = "add-branch"
	KindReparent     Kind = "reparent"
	KindRemoveBranch Kind = "remove-branch"
	KindRestack      Kind = "restack"
	KindSync         Kind = "sync"
)

// RefState is a by-value (ref name, commit id) pair
type RefState struct {
	Ref    string `json:"ref"`
	Commit string `json:"commit"`
}

// Entry is one reversible operation descriptor
type Entry struct {
	ID        int64      `json:"id"` // monotonic, 1-based
	Kind      Kind       `json:"kind"`
	StackName string     `json:"stackName,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	// RefsBefore holds the pre-operation commit for every affected ref;
	// undo restores these.
	RefsBefore []RefState `json:"refsBefore"`
	// RefsAfter holds the post-operation commits; undo refuses to run if any
	// ref no longer matches, so it never clobbers unrelated manual changes.
	RefsAfter []RefState `json:"refsAfter"`
	// GraphBefore is the raw graph file content before the operation; undo
	// restores it so parent links and recorded bases roll back with the refs.
	GraphBefore string `json:"graphBefore,omitempty"`
	Applied     bool   `json:"applied,omitempty"` // true once undone
}

// Ledger is an append-oriented history file under .git/sage/
type Ledger struct {
	path string
}

// New creates a ledger backed by <gitDir>/sage/history.json
func New(gitDir string) *Ledger {
	return &Ledger{path: filepath.Join(gitDir, "sage", "history.json")}
}

func (l *Ledger) load() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return entries, nil
}

func (l *Ledger) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// Append durably records an entry after the operation it describes has
// succeeded, assigning the next monotonic id.
func (l *Ledger) Append(e Entry) (Entry, error) {
	entries, err := l.load()
	if err != nil {
		return Entry{}, err
	}

	var maxID int64
	for _, existing := range entries {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	e.ID = maxID + 1
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	entries = append(entries, e)
	if err := l.write(entries); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns the entry with the given id
func (l *Ledger) Get(id int64) (Entry, error) {
	entries, err := l.load()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, sageerrors.ErrNothingToUndo
}

// Latest returns the newest entry that has not been undone yet
func (l *Ledger) Latest() (Entry, error) {
	entries, err := l.load()
	if err != nil {
		return Entry{}, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].Applied {
			return entries[i], nil
		}
	}
	return Entry{}, sageerrors.ErrNothingToUndo
}

// MarkApplied flags an entry as undone so a second undo of the same entry
// fails instead of re-resetting refs.
func (l *Ledger) MarkApplied(id int64) error {
	entries, err := l.load()
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].ID == id {
			if entries[i].Applied {
				return sageerrors.ErrNothingToUndo
			}
			entries[i].Applied = true
			return l.write(entries)
		}
	}
	return sageerrors.ErrNothingToUndo
}

// History yields all entries newest-first. The sequence is restartable: each
// range re-reads the snapshot taken when History was called.
func (l *Ledger) History() (iter.Seq[Entry], error) {
	entries, err := l.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })

	return func(yield func(Entry) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}, nil
}
