package graph

import (
	"iter"

	sageerrors "sage.dev/sage/internal/errors"
)

// Stack is one rooted tree of branches. The root branch is based directly on
// the repository's trunk branch, which is not itself a node.
type Stack struct {
	name  string
	trunk string
	root  string
	nodes map[string]*Node
	// children preserves insertion order so topological iteration is
	// deterministic left-to-right.
	children map[string][]string
}

func newStack(name, trunk, rootBranch, trunkTip string) *Stack {
	s := &Stack{
		name:     name,
		trunk:    trunk,
		root:     rootBranch,
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
	}
	s.nodes[rootBranch] = &Node{
		Branch:     rootBranch,
		BaseCommit: trunkTip,
		Depth:      1,
	}
	return s
}

// Name returns the stack name
func (s *Stack) Name() string { return s.name }

// Trunk returns the branch the stack root is based on
func (s *Stack) Trunk() string { return s.trunk }

// Root returns the root branch name
func (s *Stack) Root() string { return s.root }

// Contains reports whether the branch is tracked in this stack
func (s *Stack) Contains(branch string) bool {
	_, ok := s.nodes[branch]
	return ok
}

// Node returns the node for a branch
func (s *Stack) Node(branch string) (*Node, error) {
	n, ok := s.nodes[branch]
	if !ok {
		return nil, sageerrors.ErrBranchNotFound
	}
	return n, nil
}

// ParentRef returns the ref the node's branch is stacked on: the parent
// node's branch, or the trunk for the root node.
func (s *Stack) ParentRef(n *Node) string {
	if n.Parent == "" {
		return s.trunk
	}
	return n.Parent
}

// Children returns the direct children of a branch in insertion order
func (s *Stack) Children(branch string) []string {
	kids := s.children[branch]
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// Len returns the number of tracked branches
func (s *Stack) Len() int { return len(s.nodes) }

func (s *Stack) addBranch(branch, parentBranch, baseCommit string) (*Node, error) {
	if _, ok := s.nodes[branch]; ok {
		return nil, &alreadyTrackedError{branch: branch, stack: s.name}
	}
	parent, ok := s.nodes[parentBranch]
	if !ok {
		return nil, sageerrors.ErrUnknownParent
	}

	node := &Node{
		Branch:     branch,
		Parent:     parentBranch,
		BaseCommit: baseCommit,
		Depth:      parent.Depth + 1,
	}
	s.nodes[branch] = node
	s.children[parentBranch] = append(s.children[parentBranch], branch)
	return node, nil
}

// Reparent moves branch under newParent. The edge is rejected with
// CycleDetected when newParent is a descendant of branch (or branch itself);
// the graph is left untouched on rejection. The moved branch and all of its
// descendants are marked dirty.
func (s *Stack) Reparent(branch, newParent string) error {
	node, ok := s.nodes[branch]
	if !ok {
		return sageerrors.ErrBranchNotFound
	}
	if _, ok := s.nodes[newParent]; !ok {
		return sageerrors.ErrUnknownParent
	}
	if branch == s.root {
		return sageerrors.ErrUnknownParent
	}
	if branch == newParent || s.isDescendant(newParent, branch) {
		return sageerrors.NewCycleError(s.name, branch, newParent)
	}

	s.unlinkFromParent(branch, node.Parent)
	node.Parent = newParent
	s.children[newParent] = append(s.children[newParent], branch)

	s.recomputeDepths(branch)
	s.MarkSubtreeDirty(branch)
	return nil
}

func (s *Stack) removeBranch(branch string, cascade bool) error {
	node, ok := s.nodes[branch]
	if !ok {
		return sageerrors.ErrBranchNotFound
	}

	kids := s.children[branch]
	if len(kids) > 0 {
		if !cascade {
			return sageerrors.ErrHasChildren
		}
		if branch == s.root {
			// Children of the root have no node to fall back to
			return sageerrors.ErrHasChildren
		}
		// Flatten: children move up to the removed node's parent and become
		// dirty, since their recorded base no longer matches their new parent.
		for _, kid := range kids {
			child := s.nodes[kid]
			child.Parent = node.Parent
			s.children[node.Parent] = append(s.children[node.Parent], kid)
			s.recomputeDepths(kid)
			s.MarkSubtreeDirty(kid)
		}
	}

	s.unlinkFromParent(branch, node.Parent)
	delete(s.children, branch)
	delete(s.nodes, branch)

	if branch == s.root {
		s.root = ""
	}
	return nil
}

// MarkSubtreeDirty marks a branch and all of its descendants dirty
func (s *Stack) MarkSubtreeDirty(branch string) {
	if n, ok := s.nodes[branch]; ok {
		n.Dirty = true
	}
	for _, kid := range s.children[branch] {
		s.MarkSubtreeDirty(kid)
	}
}

// MarkChildrenDirty marks the direct and transitive descendants of a branch
// dirty without touching the branch itself. Used after a branch tip moves.
func (s *Stack) MarkChildrenDirty(branch string) {
	for _, kid := range s.children[branch] {
		s.MarkSubtreeDirty(kid)
	}
}

// isDescendant reports whether candidate is branch or sits below branch
func (s *Stack) isDescendant(candidate, branch string) bool {
	// Walk up from candidate; parent links are names so this terminates at
	// the root or at branch.
	cur := candidate
	for cur != "" {
		if cur == branch {
			return true
		}
		n, ok := s.nodes[cur]
		if !ok {
			return false
		}
		cur = n.Parent
	}
	return false
}

func (s *Stack) unlinkFromParent(branch, parent string) {
	kids := s.children[parent]
	for i, kid := range kids {
		if kid == branch {
			s.children[parent] = append(kids[:i], kids[i+1:]...)
			return
		}
	}
}

func (s *Stack) recomputeDepths(branch string) {
	n := s.nodes[branch]
	if n.Parent == "" {
		n.Depth = 1
	} else {
		n.Depth = s.nodes[n.Parent].Depth + 1
	}
	for _, kid := range s.children[branch] {
		s.recomputeDepths(kid)
	}
}

// TopologicalOrder yields the stack's nodes parent-before-child, depth first,
// visiting siblings in insertion order. The sequence is lazy and finite.
func (s *Stack) TopologicalOrder() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if s.root == "" {
			return
		}
		s.walk(s.root, yield)
	}
}

func (s *Stack) walk(branch string, yield func(*Node) bool) bool {
	n, ok := s.nodes[branch]
	if !ok {
		return true
	}
	if !yield(n) {
		return false
	}
	for _, kid := range s.children[branch] {
		if !s.walk(kid, yield) {
			return false
		}
	}
	return true
}

// Branches returns all branch names in topological order
func (s *Stack) Branches() []string {
	var out []string
	for n := range s.TopologicalOrder() {
		out = append(out, n.Branch)
	}
	return out
}
