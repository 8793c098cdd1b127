// Package graph implements the stack graph store: a forest of named stacks,
// each a rooted tree of branches. Nodes are addressed by branch name, never by
// pointer, and every link-creating operation runs an ancestry walk before
// committing the edge so the graph can never contain a cycle.
package graph

import (
	"sort"

	sageerrors "sage.dev/sage/internal/errors"
)

// Node is the graph's representation of one branch within a stack
type Node struct {
	Branch     string `yaml:"branch"`
	Parent     string `yaml:"parent,omitempty"` // empty for the stack root (based on trunk)
	BaseCommit string `yaml:"base_commit"`      // parent tip as of the last successful restack
	RemoteTip  string `yaml:"remote_tip,omitempty"`
	Dirty      bool   `yaml:"dirty,omitempty"`
	Depth      int    `yaml:"depth"`
}

// Graph is the full collection of stacks tracked for one repository
type Graph struct {
	stacks        map[string]*Stack
	branchToStack map[string]string
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		stacks:        make(map[string]*Stack),
		branchToStack: make(map[string]string),
	}
}

// CreateStack creates a new stack rooted at rootBranch, which is based on the
// trunk branch. trunkTip is recorded as the root's base commit.
func (g *Graph) CreateStack(name, trunk, rootBranch, trunkTip string) (*Stack, error) {
	if _, ok := g.stacks[name]; ok {
		return nil, sageerrors.ErrStackExists
	}
	if owner, ok := g.branchToStack[rootBranch]; ok {
		return nil, &alreadyTrackedError{branch: rootBranch, stack: owner}
	}

	s := newStack(name, trunk, rootBranch, trunkTip)
	g.stacks[name] = s
	g.branchToStack[rootBranch] = name
	return s, nil
}

// Stack returns the stack with the given name
func (g *Graph) Stack(name string) (*Stack, error) {
	s, ok := g.stacks[name]
	if !ok {
		return nil, sageerrors.ErrStackNotFound
	}
	return s, nil
}

// StackNames returns the names of all stacks, sorted for stable output
func (g *Graph) StackNames() []string {
	names := make([]string, 0, len(g.stacks))
	for name := range g.stacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StackFor returns the stack that tracks the given branch, if any
func (g *Graph) StackFor(branch string) (*Stack, bool) {
	name, ok := g.branchToStack[branch]
	if !ok {
		return nil, false
	}
	return g.stacks[name], true
}

// AddBranch adds a branch under parentBranch in the named stack.
// baseCommit is the parent's tip at the time of tracking.
func (g *Graph) AddBranch(stackName, branch, parentBranch, baseCommit string) (*Node, error) {
	s, err := g.Stack(stackName)
	if err != nil {
		return nil, err
	}
	if owner, ok := g.branchToStack[branch]; ok {
		return nil, &alreadyTrackedError{branch: branch, stack: owner}
	}

	node, err := s.addBranch(branch, parentBranch, baseCommit)
	if err != nil {
		return nil, err
	}
	g.branchToStack[branch] = stackName
	return node, nil
}

// RemoveBranch removes a branch from the named stack. With cascade set, the
// branch's children are reparented to its parent; otherwise removal fails with
// ErrHasChildren while children exist.
func (g *Graph) RemoveBranch(stackName, branch string, cascade bool) error {
	s, err := g.Stack(stackName)
	if err != nil {
		return err
	}
	if err := s.removeBranch(branch, cascade); err != nil {
		return err
	}
	delete(g.branchToStack, branch)

	// Removing the root removes the stack itself
	if len(s.nodes) == 0 {
		delete(g.stacks, stackName)
	}
	return nil
}

// reindex rebuilds the branch-to-stack lookup; called after load
func (g *Graph) reindex() {
	g.branchToStack = make(map[string]string)
	for name, s := range g.stacks {
		for branch := range s.nodes {
			g.branchToStack[branch] = name
		}
	}
}

type alreadyTrackedError struct {
	branch string
	stack  string
}

func (e *alreadyTrackedError) Error() string {
	return "branch " + e.branch + " is already tracked in stack " + e.stack
}

func (e *alreadyTrackedError) Is(target error) bool {
	return target == sageerrors.ErrBranchTracked
}
