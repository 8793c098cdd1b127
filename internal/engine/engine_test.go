package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	sageerrors "sage.dev/sage/internal/errors"
	"sage.dev/sage/internal/git"
	"sage.dev/sage/internal/ledger"
	"sage.dev/sage/internal/output"
)

// fakeGit simulates the plumbing adapter in memory. Rebasing a branch moves
// its tip to "<branch>@<newBase>", so outcomes are easy to assert on.
type fakeGit struct {
	refs        map[string]string
	head        string
	uncommitted bool

	rebaseCalls   []string
	conflictOn    map[string]bool
	rebasing      bool
	unresolved    bool
	pendingBranch string
	pendingBase   string

	pushed     []string
	leases     map[string]string // branch -> expectedRemoteTip of its last push
	remoteRefs map[string]string // branch -> remote-tracking commit
	rejectPush map[string]bool
	fetches    int
	checkedOut string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		refs:       make(map[string]string),
		conflictOn: make(map[string]bool),
		leases:     make(map[string]string),
		remoteRefs: make(map[string]string),
		rejectPush: make(map[string]bool),
	}
}

func (f *fakeGit) ResolveRef(name string) (string, error) {
	commit, ok := f.refs[name]
	if !ok {
		return "", fmt.Errorf("unknown ref %s", name)
	}
	return commit, nil
}

func (f *fakeGit) BranchExists(branchName string) (bool, error) {
	_, ok := f.refs[branchName]
	return ok, nil
}

func (f *fakeGit) Head() (string, error) { return f.head, nil }

func (f *fakeGit) HasUncommittedChanges() (bool, error) { return f.uncommitted, nil }

func (f *fakeGit) ForceResetRef(_ context.Context, branchName, commitID, _ string) error {
	f.refs[branchName] = commitID
	return nil
}

func (f *fakeGit) CheckoutBranch(_ context.Context, branchName string) error {
	f.checkedOut = branchName
	f.head = f.refs[branchName]
	return nil
}

func (f *fakeGit) Rebase(_ context.Context, branchName, newBase, oldBase string) (git.RebaseOutcome, error) {
	f.rebaseCalls = append(f.rebaseCalls, branchName)
	if f.conflictOn[branchName] {
		f.rebasing = true
		f.unresolved = true
		f.pendingBranch = branchName
		f.pendingBase = newBase
		f.head = "conflict-" + branchName
		return git.RebaseOutcome{Result: git.RebaseConflict}, nil
	}
	tip := branchName + "@" + newBase
	f.refs[branchName] = tip
	return git.RebaseOutcome{Result: git.RebaseDone, NewTip: tip}, nil
}

func (f *fakeGit) RebaseContinue(context.Context) (git.RebaseOutcome, error) {
	tip := f.pendingBranch + "@" + f.pendingBase
	f.rebasing = false
	f.head = tip
	return git.RebaseOutcome{Result: git.RebaseDone, NewTip: tip}, nil
}

func (f *fakeGit) RebaseAbort(context.Context) error {
	f.rebasing = false
	return nil
}

func (f *fakeGit) IsRebaseInProgress(context.Context) bool { return f.rebasing }

func (f *fakeGit) HasUnresolvedConflicts(context.Context) (bool, error) { return f.unresolved, nil }

func (f *fakeGit) Fetch(context.Context, string) error {
	f.fetches++
	return nil
}

func (f *fakeGit) PushBranch(_ context.Context, _, branchName, expectedRemoteTip string) error {
	f.leases[branchName] = expectedRemoteTip
	if f.rejectPush[branchName] {
		return sageerrors.NewPushRejectedError(branchName, errors.New("stale info"))
	}
	f.pushed = append(f.pushed, branchName)
	f.remoteRefs[branchName] = f.refs[branchName]
	return nil
}

func (f *fakeGit) GetRemoteTrackingRevision(_, branchName string) (string, error) {
	return f.remoteRefs[branchName], nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeGit) {
	t.Helper()
	fake := newFakeGit()
	fake.refs["main"] = "m1"
	fake.refs["feat-a"] = "a1"
	fake.refs["feat-b"] = "b1"
	fake.head = "a1"
	fake.checkedOut = "feat-a"

	splog := output.NewSplog()
	splog.SetQuiet(true)
	return NewWithRunner(t.TempDir(), "main", "origin", fake, splog), fake
}

// seedStack creates stack "auth" with feat-a on main and feat-b on feat-a
func seedStack(t *testing.T, eng *Engine) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, eng.InitStack(ctx, "auth", "feat-a"))
	require.NoError(t, eng.AddBranch(ctx, "auth", "feat-b", "feat-a"))
}

func TestInitStackUnknownBranch(t *testing.T) {
	eng, _ := newTestEngine(t)

	err := eng.InitStack(context.Background(), "auth", "ghost")
	require.ErrorIs(t, err, sageerrors.ErrBranchNotFound)
}

func TestRestackIsNoopWhenEverythingInPlace(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)

	res, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, RestackDone, res.Status)
	require.Empty(t, res.Restacked)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Skipped)
	require.Empty(t, fake.rebaseCalls)

	// Nothing changed, so nothing was recorded
	entries, err := eng.History()
	require.NoError(t, err)
	count := 0
	for e := range entries {
		if e.Kind == ledger.KindRestack {
			count++
		}
	}
	require.Zero(t, count)
}

func TestRestackAfterTrunkMoves(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"

	res, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, RestackDone, res.Status)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Restacked)

	// Parent before child: feat-b was rebased onto feat-a's new tip
	require.Equal(t, "feat-a@m2", fake.refs["feat-a"])
	require.Equal(t, "feat-b@feat-a@m2", fake.refs["feat-b"])

	g, err := eng.LoadGraph()
	require.NoError(t, err)
	s, err := g.Stack("auth")
	require.NoError(t, err)
	aNode, err := s.Node("feat-a")
	require.NoError(t, err)
	require.Equal(t, "m2", aNode.BaseCommit)
	bNode, err := s.Node("feat-b")
	require.NoError(t, err)
	require.Equal(t, "feat-a@m2", bNode.BaseCommit)

	// A second run over the unchanged stack performs zero rebases
	fake.rebaseCalls = nil
	res, err = eng.Restack(context.Background(), "auth")
	require.NoError(t, err)
	require.Empty(t, fake.rebaseCalls)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Skipped)
}

func TestRestackRefusesDirtyWorktree(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.uncommitted = true

	_, err := eng.Restack(context.Background(), "auth")
	require.ErrorIs(t, err, sageerrors.ErrGitOperationFailed)
}

func TestRestackConflictPausesAndBlocksMutations(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"
	fake.conflictOn["feat-b"] = true

	res, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err, "a conflict is a modeled state, not an error")
	require.Equal(t, RestackConflicted, res.Status)
	require.Equal(t, "feat-b", res.ConflictBranch)
	require.Equal(t, []string{"feat-a"}, res.Restacked)

	// Every mutating operation is blocked until continue or abort
	_, err = eng.Restack(context.Background(), "auth")
	require.ErrorIs(t, err, sageerrors.ErrSessionInProgress)
	err = eng.Reparent(context.Background(), "auth", "feat-b", "feat-a")
	require.ErrorIs(t, err, sageerrors.ErrSessionInProgress)
	_, err = eng.Sync(context.Background(), "auth")
	require.ErrorIs(t, err, sageerrors.ErrSessionInProgress)
}

func TestContinueRequiresResolvedConflicts(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"
	fake.conflictOn["feat-b"] = true

	_, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err)

	// Conflict markers still present
	_, err = eng.ContinueRestack(context.Background(), "auth")
	require.Error(t, err)
	require.True(t, fake.rebasing, "rebase must stay in progress")
}

func TestContinueFinishesTheRun(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"
	fake.conflictOn["feat-b"] = true

	_, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err)

	// User resolves and stages
	fake.unresolved = false
	delete(fake.conflictOn, "feat-b")

	res, err := eng.ContinueRestack(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, RestackDone, res.Status)
	require.Equal(t, []string{"feat-b"}, res.Restacked)
	require.Equal(t, "feat-b@feat-a@m2", fake.refs["feat-b"])
	require.Equal(t, "feat-b", fake.checkedOut)

	g, err := eng.LoadGraph()
	require.NoError(t, err)
	s, err := g.Stack("auth")
	require.NoError(t, err)
	bNode, err := s.Node("feat-b")
	require.NoError(t, err)
	require.Equal(t, "feat-a@m2", bNode.BaseCommit)
	require.False(t, bNode.Dirty)

	// Session is gone: a new restack runs (and skips everything)
	res, err = eng.Restack(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, RestackDone, res.Status)
	require.Empty(t, res.Restacked)
}

func TestContinueWithStaleSession(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"
	fake.conflictOn["feat-b"] = true

	_, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err)

	// The user ran git themselves and HEAD moved
	fake.head = "somewhere-else"
	fake.unresolved = false

	_, err = eng.ContinueRestack(context.Background(), "auth")
	require.ErrorIs(t, err, sageerrors.ErrStaleSession)
	err = eng.AbortRestack(context.Background(), "auth")
	require.ErrorIs(t, err, sageerrors.ErrStaleSession)
}

func TestContinueWithoutSession(t *testing.T) {
	eng, _ := newTestEngine(t)
	seedStack(t, eng)

	_, err := eng.ContinueRestack(context.Background(), "auth")
	require.ErrorIs(t, err, sageerrors.ErrNoSession)
	require.ErrorIs(t, eng.AbortRestack(context.Background(), "auth"), sageerrors.ErrNoSession)
}

func TestAbortRestoresPreRunState(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"
	fake.conflictOn["feat-b"] = true

	_, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, "feat-a@m2", fake.refs["feat-a"], "feat-a was rebased before the conflict")

	require.NoError(t, eng.AbortRestack(context.Background(), "auth"))

	require.False(t, fake.rebasing)
	require.Equal(t, "a1", fake.refs["feat-a"])
	require.Equal(t, "b1", fake.refs["feat-b"])

	g, err := eng.LoadGraph()
	require.NoError(t, err)
	s, err := g.Stack("auth")
	require.NoError(t, err)
	aNode, err := s.Node("feat-a")
	require.NoError(t, err)
	require.Equal(t, "m1", aNode.BaseCommit)
	bNode, err := s.Node("feat-b")
	require.NoError(t, err)
	require.Equal(t, "a1", bNode.BaseCommit)

	// Session cleared; the stack mutates normally again
	require.NoError(t, eng.Reparent(context.Background(), "auth", "feat-b", "feat-a"))
}

func TestSyncFetchesRestacksAndPushesInOrder(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"

	res, err := eng.Sync(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, 1, fake.fetches)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Restack.Restacked)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Pushed)
	require.Empty(t, res.Pending)

	g, err := eng.LoadGraph()
	require.NoError(t, err)
	s, err := g.Stack("auth")
	require.NoError(t, err)
	aNode, err := s.Node("feat-a")
	require.NoError(t, err)
	require.Equal(t, "feat-a@m2", aNode.RemoteTip)

	// A second sync has nothing to do
	fake.pushed = nil
	fake.rebaseCalls = nil
	res, err = eng.Sync(context.Background(), "auth")
	require.NoError(t, err)
	require.Empty(t, fake.rebaseCalls)
	require.Empty(t, res.Pushed)
}

func TestSyncStopsOnRejectedPush(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"
	fake.rejectPush["feat-a"] = true

	res, err := eng.Sync(context.Background(), "auth")
	require.ErrorIs(t, err, sageerrors.ErrPushRejected)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Restack.Restacked)
	require.Empty(t, res.Pushed)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Pending, "the rejected branch and everything after it are pending")

	// Retry after the rejection resumes cleanly: no re-rebasing, both pushes
	delete(fake.rejectPush, "feat-a")
	fake.rebaseCalls = nil
	res, err = eng.Sync(context.Background(), "auth")
	require.NoError(t, err)
	require.Empty(t, fake.rebaseCalls)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Pushed)
}

func TestSyncLeasesOnTrackingRefForFirstPush(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	// feat-a already existed on the remote before it was tracked
	fake.remoteRefs["feat-a"] = "a1"
	fake.refs["main"] = "m2"

	res, err := eng.Sync(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, []string{"feat-a", "feat-b"}, res.Pushed)
	require.Equal(t, "a1", fake.leases["feat-a"], "first push leases on the tracking ref, not on absence")
	require.Equal(t, "", fake.leases["feat-b"], "a branch with no remote counterpart leases on absence")

	// From the second push on, the lease is the tip recorded at the last push
	fake.refs["main"] = "m3"
	_, err = eng.Sync(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, "feat-a@m2", fake.leases["feat-a"])
}

func TestSyncPartialPushThenRetry(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"
	fake.rejectPush["feat-b"] = true

	res, err := eng.Sync(context.Background(), "auth")
	require.ErrorIs(t, err, sageerrors.ErrPushRejected)
	require.Equal(t, []string{"feat-a"}, res.Pushed)
	require.Equal(t, []string{"feat-b"}, res.Pending)

	// The retry re-rebases nothing and only pushes the rejected branch
	delete(fake.rejectPush, "feat-b")
	fake.rebaseCalls = nil
	fake.pushed = nil
	res, err = eng.Sync(context.Background(), "auth")
	require.NoError(t, err)
	require.Empty(t, fake.rebaseCalls)
	require.Equal(t, []string{"feat-b"}, res.Pushed)
	require.Equal(t, []string{"feat-b"}, fake.pushed)
}

func TestSyncConflictDefersPushes(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"
	fake.conflictOn["feat-a"] = true

	res, err := eng.Sync(context.Background(), "auth")
	require.NoError(t, err)
	require.Equal(t, RestackConflicted, res.Restack.Status)
	require.Empty(t, res.Pushed)
	require.Empty(t, fake.pushed)
}

func TestUndoReparentRestoresGraph(t *testing.T) {
	eng, fake := newTestEngine(t)
	fake.refs["feat-c"] = "c1"
	seedStack(t, eng)
	require.NoError(t, eng.AddBranch(context.Background(), "auth", "feat-c", "feat-a"))

	require.NoError(t, eng.Reparent(context.Background(), "auth", "feat-c", "feat-b"))

	require.NoError(t, eng.Undo(context.Background(), 0))

	g, err := eng.LoadGraph()
	require.NoError(t, err)
	s, err := g.Stack("auth")
	require.NoError(t, err)
	cNode, err := s.Node("feat-c")
	require.NoError(t, err)
	require.Equal(t, "feat-a", cNode.Parent)
	require.False(t, cNode.Dirty)
}

func TestUndoRestackRestoresTips(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"

	_, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err)

	require.NoError(t, eng.Undo(context.Background(), 0))

	require.Equal(t, "a1", fake.refs["feat-a"])
	require.Equal(t, "b1", fake.refs["feat-b"])

	g, err := eng.LoadGraph()
	require.NoError(t, err)
	s, err := g.Stack("auth")
	require.NoError(t, err)
	aNode, err := s.Node("feat-a")
	require.NoError(t, err)
	require.Equal(t, "m1", aNode.BaseCommit)
}

func TestUndoRefusesWhenRefMoved(t *testing.T) {
	eng, fake := newTestEngine(t)
	seedStack(t, eng)
	fake.refs["main"] = "m2"

	_, err := eng.Restack(context.Background(), "auth")
	require.NoError(t, err)

	// Someone moved feat-a by hand since the restack
	fake.refs["feat-a"] = "tampered"

	err = eng.Undo(context.Background(), 0)
	require.ErrorIs(t, err, sageerrors.ErrConcurrentModification)
	require.Equal(t, "feat-b@feat-a@m2", fake.refs["feat-b"], "no refs may be touched on refusal")
}

func TestUndoSameEntryTwice(t *testing.T) {
	eng, _ := newTestEngine(t)
	seedStack(t, eng)
	require.NoError(t, eng.Reparent(context.Background(), "auth", "feat-b", "feat-a"))

	latest, err := eng.history.Latest()
	require.NoError(t, err)

	require.NoError(t, eng.Undo(context.Background(), latest.ID))
	require.ErrorIs(t, eng.Undo(context.Background(), latest.ID), sageerrors.ErrNothingToUndo)
}

func TestUndoFirstOperationRemovesGraph(t *testing.T) {
	eng, _ := newTestEngine(t)
	require.NoError(t, eng.InitStack(context.Background(), "auth", "feat-a"))

	require.NoError(t, eng.Undo(context.Background(), 0))

	g, err := eng.LoadGraph()
	require.NoError(t, err)
	require.Empty(t, g.StackNames())
}

func TestUndoOnEmptyHistory(t *testing.T) {
	eng, _ := newTestEngine(t)

	err := eng.Undo(context.Background(), 0)
	require.ErrorIs(t, err, sageerrors.ErrNothingToUndo)
}

func TestHistoryNewestFirst(t *testing.T) {
	eng, _ := newTestEngine(t)
	seedStack(t, eng)

	entries, err := eng.History()
	require.NoError(t, err)

	var kinds []ledger.Kind
	for e := range entries {
		kinds = append(kinds, e.Kind)
	}
	require.Equal(t, []ledger.Kind{ledger.KindAddBranch, ledger.KindCreateStack}, kinds)
}
