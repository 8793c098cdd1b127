package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	sageerrors "sage.dev/sage/internal/errors"
)

func TestAppendAssignsMonotonicIDs(t *testing.T) {
	l := New(t.TempDir())

	first, err := l.Append(Entry{Kind: KindCreateStack, StackName: "auth"})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)
	require.False(t, first.Timestamp.IsZero())

	second, err := l.Append(Entry{Kind: KindRestack, StackName: "auth"})
	require.NoError(t, err)
	require.Equal(t, int64(2), second.ID)
}

func TestLatestSkipsApplied(t *testing.T) {
	l := New(t.TempDir())

	_, err := l.Append(Entry{Kind: KindCreateStack, StackName: "auth"})
	require.NoError(t, err)
	second, err := l.Append(Entry{Kind: KindRestack, StackName: "auth"})
	require.NoError(t, err)

	latest, err := l.Latest()
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)

	require.NoError(t, l.MarkApplied(second.ID))

	latest, err = l.Latest()
	require.NoError(t, err)
	require.Equal(t, int64(1), latest.ID)
}

func TestLatestOnEmptyLedger(t *testing.T) {
	l := New(t.TempDir())

	_, err := l.Latest()
	require.ErrorIs(t, err, sageerrors.ErrNothingToUndo)
}

func TestMarkAppliedTwice(t *testing.T) {
	l := New(t.TempDir())

	e, err := l.Append(Entry{Kind: KindReparent, StackName: "auth"})
	require.NoError(t, err)

	require.NoError(t, l.MarkApplied(e.ID))
	require.ErrorIs(t, l.MarkApplied(e.ID), sageerrors.ErrNothingToUndo)
}

func TestGetUnknownID(t *testing.T) {
	l := New(t.TempDir())

	_, err := l.Get(42)
	require.ErrorIs(t, err, sageerrors.ErrNothingToUndo)
}

func TestHistoryNewestFirstAndRestartable(t *testing.T) {
	l := New(t.TempDir())
	for _, kind := range []Kind{KindCreateStack, KindAddBranch, KindRestack} {
		_, err := l.Append(Entry{Kind: kind, StackName: "auth"})
		require.NoError(t, err)
	}

	entries, err := l.History()
	require.NoError(t, err)

	collect := func() []int64 {
		var ids []int64
		for e := range entries {
			ids = append(ids, e.ID)
		}
		return ids
	}
	require.Equal(t, []int64{3, 2, 1}, collect())
	require.Equal(t, []int64{3, 2, 1}, collect(), "sequence should be restartable")
}

func TestEntriesPreserveRefSnapshots(t *testing.T) {
	l := New(t.TempDir())

	_, err := l.Append(Entry{
		Kind:        KindRestack,
		StackName:   "auth",
		RefsBefore:  []RefState{{Ref: "feat-a", Commit: "a1"}},
		RefsAfter:   []RefState{{Ref: "feat-a", Commit: "a2"}},
		GraphBefore: "version: 1\n",
	})
	require.NoError(t, err)

	e, err := l.Get(1)
	require.NoError(t, err)
	require.Equal(t, "a1", e.RefsBefore[0].Commit)
	require.Equal(t, "a2", e.RefsAfter[0].Commit)
	require.Equal(t, "version: 1\n", e.GraphBefore)
}
