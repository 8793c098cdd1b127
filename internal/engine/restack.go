package engine

import (
	"context"
	"fmt"
	"time"

	sageerrors "sage.dev/sage/internal/errors"
	"sage.dev/sage/internal/git"
	"sage.dev/sage/internal/graph"
	"sage.dev/sage/internal/ledger"
	"sage.dev/sage/internal/session"
)

// Restack walks the stack in topological order and rebases every branch onto
// its parent's current tip. A branch whose recorded base already equals the
// parent tip (and is not marked dirty) is skipped, so a second run over an
// unchanged stack performs no rebases at all.
//
// On a merge conflict the run pauses: a session is written under .git/sage/
// and the result reports Conflicted. 'sg continue' resumes from the paused
// branch, 'sg abort' unwinds to the pre-run state.
func (e *Engine) Restack(ctx context.Context, stackName string) (RestackResult, error) {
	l, err := e.lockStack(stackName)
	if err != nil {
		return RestackResult{}, err
	}
	defer l.Release()

	if err := e.ensureNoSession(stackName); err != nil {
		return RestackResult{}, err
	}
	return e.restackLocked(ctx, stackName)
}

// restackLocked runs a restack assuming the caller holds the stack lock and
// has already checked for a paused session. Sync calls this directly.
func (e *Engine) restackLocked(ctx context.Context, stackName string) (RestackResult, error) {
	var res RestackResult

	dirty, err := e.git.HasUncommittedChanges()
	if err != nil {
		return res, err
	}
	if dirty {
		return res, fmt.Errorf("%w: working tree has uncommitted changes, commit or stash them first",
			sageerrors.ErrGitOperationFailed)
	}

	g, err := e.store.Load()
	if err != nil {
		return res, err
	}
	s, err := g.Stack(stackName)
	if err != nil {
		return res, err
	}

	graphBefore, err := e.store.ReadRaw()
	if err != nil {
		return res, err
	}

	// Capture every branch's pre-run state by value. Abort restores from
	// these; the completed-run history entry is built from them too.
	var snapshots []session.BranchSnapshot
	for n := range s.TopologicalOrder() {
		tip, err := e.git.ResolveRef(n.Branch)
		if err != nil {
			return res, fmt.Errorf("failed to resolve %s: %w", n.Branch, err)
		}
		snapshots = append(snapshots, session.BranchSnapshot{
			Branch:     n.Branch,
			Tip:        tip,
			BaseCommit: n.BaseCommit,
			WasDirty:   n.Dirty,
		})
	}

	sess := &session.Session{
		StackName:   stackName,
		Queue:       s.Branches(),
		State:       session.StateRunning,
		Snapshots:   snapshots,
		GraphBefore: string(graphBefore),
		CreatedAt:   time.Now(),
	}

	if err := e.processQueue(ctx, g, s, sess, &res); err != nil {
		return res, err
	}
	if res.Status == RestackConflicted {
		return res, nil
	}

	e.finishRestack(sess, &res)
	return res, nil
}

// processQueue rebases the session's queue starting at CurrentIndex. On a
// conflict it persists the session and marks the result Conflicted; the
// session is not written on any other path.
func (e *Engine) processQueue(ctx context.Context, g *graph.Graph, s *graph.Stack, sess *session.Session, res *RestackResult) error {
	for i := sess.CurrentIndex; i < len(sess.Queue); i++ {
		branch := sess.Queue[i]
		node, err := s.Node(branch)
		if err != nil {
			return err
		}

		parentTip, err := e.git.ResolveRef(s.ParentRef(node))
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", s.ParentRef(node), err)
		}

		if node.BaseCommit == parentTip && !node.Dirty {
			res.Skipped = append(res.Skipped, branch)
			continue
		}

		outcome, err := e.git.Rebase(ctx, branch, parentTip, node.BaseCommit)
		if err != nil {
			// Branches processed before this one are already saved; this
			// branch and everything after it are untouched.
			return err
		}

		if outcome.Result == git.RebaseConflict {
			head, herr := e.git.Head()
			if herr != nil {
				return herr
			}
			sess.CurrentIndex = i
			sess.State = session.StateConflicted
			sess.HeadGuard = head
			sess.PendingBase = parentTip
			if err := e.sessions.Save(sess); err != nil {
				return err
			}
			res.Status = RestackConflicted
			res.ConflictBranch = branch
			e.splog.Warn("conflict while restacking %s", branch)
			e.splog.Tip("resolve the conflicts, then run 'sg continue' (or 'sg abort' to unwind)")
			return nil
		}

		node.BaseCommit = parentTip
		node.Dirty = false
		if err := e.store.Save(g); err != nil {
			return err
		}
		res.Restacked = append(res.Restacked, branch)
		e.splog.Debug("restacked %s onto %s", branch, parentTip)
	}

	res.Status = RestackDone
	return nil
}

// finishRestack records a history entry for a completed run. A run that
// skipped every branch changed nothing and records nothing.
func (e *Engine) finishRestack(sess *session.Session, res *RestackResult) {
	if len(res.Restacked) == 0 {
		e.splog.Info("stack %s is already restacked", sess.StackName)
		return
	}

	before := make([]ledger.RefState, 0, len(sess.Snapshots))
	for _, snap := range sess.Snapshots {
		before = append(before, ledger.RefState{Ref: snap.Branch, Commit: snap.Tip})
	}
	after, err := e.snapshotRefs(sess.Queue)
	if err != nil {
		e.splog.Warn("failed to snapshot refs for history: %v", err)
		return
	}
	e.record(ledger.KindRestack, sess.StackName, before, after, []byte(sess.GraphBefore))

	e.splog.Info("restacked %d branch(es) in stack %s", len(res.Restacked), sess.StackName)
}

// ContinueRestack resumes a restack that paused on a conflict. It requires
// the conflicts to be resolved and staged, finishes the in-progress rebase,
// then proceeds through the rest of the queue.
func (e *Engine) ContinueRestack(ctx context.Context, stackName string) (RestackResult, error) {
	var res RestackResult

	l, err := e.lockStack(stackName)
	if err != nil {
		return res, err
	}
	defer l.Release()

	sess, err := e.sessions.Load(stackName)
	if err != nil {
		return res, err
	}
	if sess.State != session.StateConflicted {
		return res, fmt.Errorf("session for stack %s is %s, not conflicted; run 'sg abort'",
			stackName, sess.State)
	}

	if err := e.checkHeadGuard(sess); err != nil {
		return res, err
	}

	branch := sess.CurrentBranch()
	if !e.git.IsRebaseInProgress(ctx) {
		return res, fmt.Errorf("no rebase in progress for stack %s; run 'sg abort' to clear the session", stackName)
	}

	unresolved, err := e.git.HasUnresolvedConflicts(ctx)
	if err != nil {
		return res, err
	}
	if unresolved {
		return res, fmt.Errorf("%s still has unresolved conflicts; stage the resolutions before 'sg continue'", branch)
	}

	outcome, err := e.git.RebaseContinue(ctx)
	if err != nil {
		return res, err
	}
	if outcome.Result == git.RebaseConflict {
		// The same branch hit another conflicting commit. Re-arm the guard
		// and pause again.
		head, herr := e.git.Head()
		if herr != nil {
			return res, herr
		}
		sess.HeadGuard = head
		if err := e.sessions.Save(sess); err != nil {
			return res, err
		}
		res.Status = RestackConflicted
		res.ConflictBranch = branch
		e.splog.Warn("another conflict while restacking %s", branch)
		e.splog.Tip("resolve the conflicts, then run 'sg continue' again")
		return res, nil
	}

	// The rebase ran on a detached HEAD; land the result on the branch ref
	// and put the working tree back on it.
	if err := e.git.ForceResetRef(ctx, branch, outcome.NewTip, "sg continue: restack "+branch); err != nil {
		return res, err
	}
	if err := e.git.CheckoutBranch(ctx, branch); err != nil {
		return res, err
	}

	g, err := e.store.Load()
	if err != nil {
		return res, err
	}
	s, err := g.Stack(stackName)
	if err != nil {
		return res, err
	}
	node, err := s.Node(branch)
	if err != nil {
		return res, err
	}
	node.BaseCommit = sess.PendingBase
	node.Dirty = false
	if err := e.store.Save(g); err != nil {
		return res, err
	}
	res.Restacked = append(res.Restacked, branch)

	sess.CurrentIndex++
	sess.State = session.StateRunning
	if err := e.processQueue(ctx, g, s, sess, &res); err != nil {
		return res, err
	}
	if res.Status == RestackConflicted {
		return res, nil
	}

	if err := e.sessions.Clear(stackName); err != nil {
		return res, err
	}
	e.finishRestack(sess, &res)
	return res, nil
}

// AbortRestack unwinds a paused restack: the in-progress rebase is aborted
// and every branch in the stack is reset to its pre-run tip, with recorded
// bases and dirty flags restored from the session snapshot.
func (e *Engine) AbortRestack(ctx context.Context, stackName string) error {
	l, err := e.lockStack(stackName)
	if err != nil {
		return err
	}
	defer l.Release()

	sess, err := e.sessions.Load(stackName)
	if err != nil {
		return err
	}
	if err := e.checkHeadGuard(sess); err != nil {
		return err
	}

	if e.git.IsRebaseInProgress(ctx) {
		if err := e.git.RebaseAbort(ctx); err != nil {
			return err
		}
	}

	g, err := e.store.Load()
	if err != nil {
		return err
	}
	s, err := g.Stack(stackName)
	if err != nil {
		return err
	}

	for _, snap := range sess.Snapshots {
		current, err := e.git.ResolveRef(snap.Branch)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", snap.Branch, err)
		}
		if current != snap.Tip {
			if err := e.git.ForceResetRef(ctx, snap.Branch, snap.Tip, "sg abort: restore "+snap.Branch); err != nil {
				return err
			}
		}
		node, err := s.Node(snap.Branch)
		if err != nil {
			return err
		}
		node.BaseCommit = snap.BaseCommit
		node.Dirty = snap.WasDirty
	}
	if err := e.store.Save(g); err != nil {
		return err
	}

	if err := e.git.CheckoutBranch(ctx, sess.CurrentBranch()); err != nil {
		return err
	}
	if err := e.sessions.Clear(stackName); err != nil {
		return err
	}

	e.splog.Info("aborted restack of stack %s; all branches restored", stackName)
	return nil
}

// checkHeadGuard fails with StaleSession when HEAD has moved since the
// session was written, which means the user touched the rebase out-of-band.
func (e *Engine) checkHeadGuard(sess *session.Session) error {
	head, err := e.git.Head()
	if err != nil {
		return err
	}
	if head != sess.HeadGuard {
		return sageerrors.NewStaleSessionError(sess.StackName, sess.HeadGuard, head)
	}
	return nil
}
