package engine

import (
	"context"
	"fmt"
	"iter"

	sageerrors "sage.dev/sage/internal/errors"
	"sage.dev/sage/internal/ledger"
)

// Undo reverses a recorded operation by resetting every affected ref to its
// pre-operation commit and restoring the graph file snapshot. id 0 selects
// the newest entry that has not been undone yet.
//
// Before touching anything, every affected ref is checked against the
// operation's recorded post-state; a mismatch means something else moved the
// ref since, and undo fails with ConcurrentModification without resetting
// any ref at all.
func (e *Engine) Undo(ctx context.Context, id int64) error {
	var entry ledger.Entry
	var err error
	if id == 0 {
		entry, err = e.history.Latest()
	} else {
		entry, err = e.history.Get(id)
	}
	if err != nil {
		return err
	}
	if entry.Applied {
		return sageerrors.ErrNothingToUndo
	}

	l, err := e.lockStack(entry.StackName)
	if err != nil {
		return err
	}
	defer l.Release()

	if err := e.ensureNoSession(entry.StackName); err != nil {
		return err
	}

	// Verify-then-apply: the whole check runs before the first reset
	for _, ref := range entry.RefsAfter {
		current, err := e.git.ResolveRef(ref.Ref)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", ref.Ref, err)
		}
		if current != ref.Commit {
			return sageerrors.NewConcurrentModificationError(ref.Ref, ref.Commit, current)
		}
	}

	for _, ref := range entry.RefsBefore {
		current, err := e.git.ResolveRef(ref.Ref)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", ref.Ref, err)
		}
		if current == ref.Commit {
			continue
		}
		reason := fmt.Sprintf("sg undo: revert %s #%d", entry.Kind, entry.ID)
		if err := e.git.ForceResetRef(ctx, ref.Ref, ref.Commit, reason); err != nil {
			return err
		}
	}

	// An empty snapshot means the operation created the graph file itself
	if entry.GraphBefore == "" {
		if err := e.store.Remove(); err != nil {
			return err
		}
	} else {
		if err := e.store.WriteRaw([]byte(entry.GraphBefore)); err != nil {
			return err
		}
	}

	if err := e.history.MarkApplied(entry.ID); err != nil {
		return err
	}

	e.splog.Info("undid %s #%d on stack %s", entry.Kind, entry.ID, entry.StackName)
	return nil
}

// History yields the recorded operations newest-first
func (e *Engine) History() (iter.Seq[ledger.Entry], error) {
	return e.history.History()
}
