package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sageerrors "sage.dev/sage/internal/errors"
)

func testSession() *Session {
	return &Session{
		StackName:    "auth",
		Queue:        []string{"feat-a", "feat-b", "feat-c"},
		CurrentIndex: 1,
		State:        StateConflicted,
		HeadGuard:    "deadbeef",
		PendingBase:  "cafebabe",
		Snapshots: []BranchSnapshot{
			{Branch: "feat-a", Tip: "a1", BaseCommit: "m1"},
			{Branch: "feat-b", Tip: "b1", BaseCommit: "a1", WasDirty: true},
		},
		CreatedAt: time.Now(),
	}
}

func TestLoadMissingSession(t *testing.T) {
	st := NewStore(t.TempDir())

	_, err := st.Load("auth")
	require.ErrorIs(t, err, sageerrors.ErrNoSession)
	require.False(t, st.Exists("auth"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := NewStore(t.TempDir())
	require.NoError(t, st.Save(testSession()))
	require.True(t, st.Exists("auth"))

	s, err := st.Load("auth")
	require.NoError(t, err)
	require.Equal(t, "feat-b", s.CurrentBranch())
	require.Equal(t, StateConflicted, s.State)
	require.Equal(t, "deadbeef", s.HeadGuard)
	require.Equal(t, "cafebabe", s.PendingBase)

	snap, ok := s.Snapshot("feat-b")
	require.True(t, ok)
	require.Equal(t, "b1", snap.Tip)
	require.True(t, snap.WasDirty)

	_, ok = s.Snapshot("ghost")
	require.False(t, ok)
}

func TestSessionsAreKeyedByStack(t *testing.T) {
	st := NewStore(t.TempDir())
	require.NoError(t, st.Save(testSession()))

	require.False(t, st.Exists("billing"))
	_, err := st.Load("billing")
	require.ErrorIs(t, err, sageerrors.ErrNoSession)
}

func TestClear(t *testing.T) {
	st := NewStore(t.TempDir())
	require.NoError(t, st.Save(testSession()))

	require.NoError(t, st.Clear("auth"))
	require.False(t, st.Exists("auth"))

	// Clearing an absent session is fine
	require.NoError(t, st.Clear("auth"))
}

func TestCurrentBranchOutOfRange(t *testing.T) {
	s := testSession()
	s.CurrentIndex = 99
	require.Equal(t, "", s.CurrentBranch())
}
