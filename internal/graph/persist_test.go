package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	sageerrors "sage.dev/sage/internal/errors"
)

func TestLoadMissingFileYieldsEmptyGraph(t *testing.T) {
	st := NewStore(t.TempDir())

	g, err := st.Load()
	require.NoError(t, err)
	require.Empty(t, g.StackNames())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := NewStore(t.TempDir())
	g := buildGraph(t)

	s, err := g.Stack("auth")
	require.NoError(t, err)
	bNode, err := s.Node("feat-b")
	require.NoError(t, err)
	bNode.Dirty = true
	bNode.RemoteTip = "remote-b1"

	require.NoError(t, st.Save(g))

	loaded, err := st.Load()
	require.NoError(t, err)

	ls, err := loaded.Stack("auth")
	require.NoError(t, err)
	require.Equal(t, "main", ls.Trunk())
	require.Equal(t, "feat-a", ls.Root())
	require.Equal(t, s.Branches(), ls.Branches())

	lb, err := ls.Node("feat-b")
	require.NoError(t, err)
	require.Equal(t, "a1", lb.BaseCommit)
	require.Equal(t, "remote-b1", lb.RemoteTip)
	require.True(t, lb.Dirty)
	require.Equal(t, 2, lb.Depth)
}

func TestRoundTripPreservesSiblingOrder(t *testing.T) {
	st := NewStore(t.TempDir())
	g := New()
	_, err := g.CreateStack("s", "main", "root", "m1")
	require.NoError(t, err)
	for _, b := range []string{"zeta", "alpha", "mid"} {
		_, err = g.AddBranch("s", b, "root", "r1")
		require.NoError(t, err)
	}

	require.NoError(t, st.Save(g))
	loaded, err := st.Load()
	require.NoError(t, err)

	s, err := loaded.Stack("s")
	require.NoError(t, err)
	require.Equal(t, []string{"root", "zeta", "alpha", "mid"}, s.Branches())
}

func TestLoadCorruptFileIsIntegrityError(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sage"), 0o750))
	require.NoError(t, os.WriteFile(st.Path(), []byte("{not yaml: ["), 0o600))

	_, err := st.Load()
	require.ErrorIs(t, err, sageerrors.ErrGraphIntegrity)
}

func TestLoadVersionMismatchIsIntegrityError(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sage"), 0o750))
	require.NoError(t, os.WriteFile(st.Path(), []byte("version: 99\nstacks: []\n"), 0o600))

	_, err := st.Load()
	require.ErrorIs(t, err, sageerrors.ErrGraphIntegrity)
}

func TestLoadUnknownParentIsIntegrityError(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sage"), 0o750))
	content := `version: 1
stacks:
  - name: s
    trunk: main
    root: a
    nodes:
      - branch: a
        base_commit: m1
        depth: 1
      - branch: b
        parent: ghost
        base_commit: x1
        depth: 2
`
	require.NoError(t, os.WriteFile(st.Path(), []byte(content), 0o600))

	_, err := st.Load()
	require.ErrorIs(t, err, sageerrors.ErrGraphIntegrity)
}

func TestReadRawMissingFile(t *testing.T) {
	st := NewStore(t.TempDir())

	data, err := st.ReadRaw()
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestWriteRawRestoresSnapshot(t *testing.T) {
	st := NewStore(t.TempDir())
	g := buildGraph(t)
	require.NoError(t, st.Save(g))

	snapshot, err := st.ReadRaw()
	require.NoError(t, err)
	require.NotEmpty(t, snapshot)

	require.NoError(t, g.RemoveBranch("auth", "feat-c", false))
	require.NoError(t, st.Save(g))

	require.NoError(t, st.WriteRaw(snapshot))
	restored, err := st.Load()
	require.NoError(t, err)
	s, err := restored.Stack("auth")
	require.NoError(t, err)
	require.True(t, s.Contains("feat-c"))
}

func TestRemove(t *testing.T) {
	st := NewStore(t.TempDir())
	require.NoError(t, st.Save(buildGraph(t)))

	require.NoError(t, st.Remove())
	require.NoError(t, st.Remove()) // second remove is a no-op

	g, err := st.Load()
	require.NoError(t, err)
	require.Empty(t, g.StackNames())
}
