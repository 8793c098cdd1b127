package output

import (
	"strings"

	"sage.dev/sage/internal/graph"
)

// RenderStack renders one stack as an indented tree, trunk first, with a
// dirty marker on branches whose parent has moved since their last restack.
func RenderStack(s *graph.Stack, currentBranch string) []string {
	lines := []string{ColorDim(s.Trunk() + " (trunk)")}
	lines = append(lines, renderSubtree(s, s.Root(), currentBranch)...)
	return lines
}

func renderSubtree(s *graph.Stack, branch, currentBranch string) []string {
	node, err := s.Node(branch)
	if err != nil {
		return nil
	}

	indent := strings.Repeat("  ", node.Depth-1)
	label := node.Branch
	if node.Branch == currentBranch {
		label = ColorCyan("* " + label)
	} else {
		label = "  " + label
	}
	if node.Dirty {
		label += ColorYellow(" (needs restack)")
	}

	lines := []string{indent + label}
	for _, kid := range s.Children(branch) {
		lines = append(lines, renderSubtree(s, kid, currentBranch)...)
	}
	return lines
}
