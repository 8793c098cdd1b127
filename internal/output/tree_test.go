package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"sage.dev/sage/internal/graph"
)

// Tests run without a terminal on stdout, so colors are plain text.

func TestRenderStack(t *testing.T) {
	g := graph.New()
	_, err := g.CreateStack("auth", "main", "feat-a", "m1")
	require.NoError(t, err)
	_, err = g.AddBranch("auth", "feat-b", "feat-a", "a1")
	require.NoError(t, err)
	_, err = g.AddBranch("auth", "feat-c", "feat-b", "b1")
	require.NoError(t, err)

	s, err := g.Stack("auth")
	require.NoError(t, err)
	cNode, err := s.Node("feat-c")
	require.NoError(t, err)
	cNode.Dirty = true

	lines := RenderStack(s, "feat-b")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "main (trunk)")
	require.Contains(t, lines[1], "feat-a")
	require.Contains(t, lines[2], "* feat-b")
	require.Contains(t, lines[3], "feat-c")
	require.Contains(t, lines[3], "(needs restack)")

	// Depth shows as increasing indentation
	require.True(t, strings.HasPrefix(lines[3], "    "))
}

func TestRenderStackNoCurrentBranch(t *testing.T) {
	g := graph.New()
	_, err := g.CreateStack("s", "main", "solo", "m1")
	require.NoError(t, err)
	s, err := g.Stack("s")
	require.NoError(t, err)

	lines := RenderStack(s, "")
	require.Len(t, lines, 2)
	require.NotContains(t, lines[1], "*")
}
