package engine

import (
	"context"
	"errors"
	"fmt"

	sageerrors "sage.dev/sage/internal/errors"
	"sage.dev/sage/internal/graph"
	"sage.dev/sage/internal/ledger"
)

// Sync brings the stack up to date end to end: fetch the remote, restack
// every branch onto its parent's current tip, then push the branches whose
// tips moved, parents before children, each with a lease against the last
// remote tip this tool saw.
//
// A rejected push stops the run; the result reports which branches were
// pushed and which are still pending, and a retry resumes cleanly because
// restack skips already-processed branches and already-pushed branches are
// recognized by their recorded remote tip.
func (e *Engine) Sync(ctx context.Context, stackName string) (SyncResult, error) {
	var res SyncResult

	l, err := e.lockStack(stackName)
	if err != nil {
		return res, err
	}
	defer l.Release()

	if err := e.ensureNoSession(stackName); err != nil {
		return res, err
	}

	e.splog.Info("fetching %s", e.remote)
	if err := e.git.Fetch(ctx, e.remote); err != nil {
		return res, err
	}

	res.Restack, err = e.restackLocked(ctx, stackName)
	if err != nil {
		return res, err
	}
	if res.Restack.Status == RestackConflicted {
		// Pushes wait until the conflict is resolved and sync is rerun
		return res, nil
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

	queue := s.Branches()
	for i, branch := range queue {
		node, err := s.Node(branch)
		if err != nil {
			return res, err
		}
		tip, err := e.git.ResolveRef(branch)
		if err != nil {
			return res, fmt.Errorf("failed to resolve %s: %w", branch, err)
		}
		if tip == node.RemoteTip {
			continue
		}

		// The lease is the last remote tip this tool saw. Before the first
		// push of a branch that's bookkeeping is empty, so fall back to the
		// tracking ref: a branch that already existed on the remote before it
		// was tracked must lease on that value, not on absence.
		lease := node.RemoteTip
		if lease == "" {
			lease, err = e.git.GetRemoteTrackingRevision(e.remote, branch)
			if err != nil {
				return res, err
			}
		}

		if err := e.git.PushBranch(ctx, e.remote, branch, lease); err != nil {
			if !errors.Is(err, sageerrors.ErrPushRejected) {
				return res, err
			}
			res.Pending = e.pendingPushes(s, queue[i:])
			e.splog.Warn("push of %s rejected: remote tip moved since the last sync", branch)
			e.splog.Tip("fetch and rerun 'sg sync'; already-pushed branches will not be re-pushed")
			e.recordSync(stackName, queue, graphBefore, res)
			return res, err
		}

		node.RemoteTip = tip
		if err := e.store.Save(g); err != nil {
			return res, err
		}
		res.Pushed = append(res.Pushed, branch)
		e.splog.Debug("pushed %s to %s", branch, e.remote)
	}

	e.recordSync(stackName, queue, graphBefore, res)
	e.splog.Info("synced stack %s: %d restacked, %d pushed", stackName, len(res.Restack.Restacked), len(res.Pushed))
	return res, nil
}

// pendingPushes lists the branches in rest whose tips differ from their
// recorded remote tips, the rejected branch included.
func (e *Engine) pendingPushes(s *graph.Stack, rest []string) []string {
	var pending []string
	for _, branch := range rest {
		node, err := s.Node(branch)
		if err != nil {
			continue
		}
		tip, err := e.git.ResolveRef(branch)
		if err != nil || tip != node.RemoteTip {
			pending = append(pending, branch)
		}
	}
	return pending
}

// recordSync appends a history entry for the push bookkeeping. Branch tips
// are not moved by pushing, so before and after refs are identical; undoing
// a sync rolls back the recorded remote tips.
func (e *Engine) recordSync(stackName string, queue []string, graphBefore []byte, res SyncResult) {
	if len(res.Pushed) == 0 {
		return
	}
	refs, err := e.snapshotRefs(queue)
	if err != nil {
		e.splog.Warn("failed to snapshot refs for history: %v", err)
		return
	}
	e.record(ledger.KindSync, stackName, refs, refs, graphBefore)
}
