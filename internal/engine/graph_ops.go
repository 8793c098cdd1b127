package engine

import (
	"context"
	"fmt"

	sageerrors "sage.dev/sage/internal/errors"
	"sage.dev/sage/internal/ledger"
)

// InitStack starts tracking a new stack rooted at rootBranch, based on the
// trunk. The trunk's current tip is recorded as the root's base commit.
func (e *Engine) InitStack(ctx context.Context, name, rootBranch string) error {
	l, err := e.lockStack(name)
	if err != nil {
		return err
	}
	defer l.Release()

	if err := e.ensureNoSession(name); err != nil {
		return err
	}

	exists, err := e.git.BranchExists(rootBranch)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("branch %s does not exist: %w", rootBranch, sageerrors.ErrBranchNotFound)
	}

	trunkTip, err := e.git.ResolveRef(e.trunk)
	if err != nil {
		return fmt.Errorf("failed to resolve trunk %s: %w", e.trunk, err)
	}

	g, err := e.store.Load()
	if err != nil {
		return err
	}
	graphBefore, err := e.store.ReadRaw()
	if err != nil {
		return err
	}

	if _, err := g.CreateStack(name, e.trunk, rootBranch, trunkTip); err != nil {
		return err
	}
	if err := e.store.Save(g); err != nil {
		return err
	}

	// Graph-only mutation: branch refs are unchanged, so before == after. The
	// snapshot still lets undo verify nothing moved underneath it.
	refs, err := e.snapshotRefs([]string{rootBranch})
	if err != nil {
		return err
	}
	e.record(ledger.KindCreateStack, name, refs, refs, graphBefore)

	e.splog.Info("created stack %s with root %s on %s", name, rootBranch, e.trunk)
	return nil
}

// AddBranch starts tracking branch under parent in the named stack. The
// parent's current tip is recorded as the branch's base commit, so a branch
// created directly off its parent starts out clean.
func (e *Engine) AddBranch(ctx context.Context, stackName, branch, parent string) error {
	l, err := e.lockStack(stackName)
	if err != nil {
		return err
	}
	defer l.Release()

	if err := e.ensureNoSession(stackName); err != nil {
		return err
	}

	exists, err := e.git.BranchExists(branch)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("branch %s does not exist: %w", branch, sageerrors.ErrBranchNotFound)
	}

	g, err := e.store.Load()
	if err != nil {
		return err
	}
	if _, err := g.Stack(stackName); err != nil {
		return err
	}

	parentTip, err := e.git.ResolveRef(parent)
	if err != nil {
		return fmt.Errorf("failed to resolve parent %s: %w", parent, err)
	}

	graphBefore, err := e.store.ReadRaw()
	if err != nil {
		return err
	}
	if _, err := g.AddBranch(stackName, branch, parent, parentTip); err != nil {
		return err
	}
	if err := e.store.Save(g); err != nil {
		return err
	}

	refs, err := e.snapshotRefs([]string{branch})
	if err != nil {
		return err
	}
	e.record(ledger.KindAddBranch, stackName, refs, refs, graphBefore)

	e.splog.Info("added %s to stack %s under %s", branch, stackName, parent)
	return nil
}

// Reparent moves branch under newParent within the stack. The moved subtree
// is marked dirty; the branch history itself is only rewritten by the next
// restack.
func (e *Engine) Reparent(ctx context.Context, stackName, branch, newParent string) error {
	l, err := e.lockStack(stackName)
	if err != nil {
		return err
	}
	defer l.Release()

	if err := e.ensureNoSession(stackName); err != nil {
		return err
	}

	g, err := e.store.Load()
	if err != nil {
		return err
	}
	s, err := g.Stack(stackName)
	if err != nil {
		return err
	}

	graphBefore, err := e.store.ReadRaw()
	if err != nil {
		return err
	}
	if err := s.Reparent(branch, newParent); err != nil {
		return err
	}
	if err := e.store.Save(g); err != nil {
		return err
	}

	refs, err := e.snapshotRefs([]string{branch})
	if err != nil {
		return err
	}
	e.record(ledger.KindReparent, stackName, refs, refs, graphBefore)

	e.splog.Info("moved %s under %s; run 'sg restack' to rewrite it", branch, newParent)
	return nil
}

// RemoveBranch stops tracking branch. With cascade set, its children move up
// to its parent and become dirty; without it, removal fails while children
// exist. The git branch itself is left alone.
func (e *Engine) RemoveBranch(ctx context.Context, stackName, branch string, cascade bool) error {
	l, err := e.lockStack(stackName)
	if err != nil {
		return err
	}
	defer l.Release()

	if err := e.ensureNoSession(stackName); err != nil {
		return err
	}

	g, err := e.store.Load()
	if err != nil {
		return err
	}
	if _, err := g.Stack(stackName); err != nil {
		return err
	}

	graphBefore, err := e.store.ReadRaw()
	if err != nil {
		return err
	}
	if err := g.RemoveBranch(stackName, branch, cascade); err != nil {
		return err
	}
	if err := e.store.Save(g); err != nil {
		return err
	}

	refs, err := e.snapshotRefs([]string{branch})
	if err != nil {
		return err
	}
	e.record(ledger.KindRemoveBranch, stackName, refs, refs, graphBefore)

	e.splog.Info("removed %s from stack %s", branch, stackName)
	return nil
}
