package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	sageerrors "sage.dev/sage/internal/errors"
)

// fileVersion is the schema version of the graph file. Loading any other
// version fails with GraphIntegrityError rather than guessing.
const fileVersion = 1

// graphFile is the on-disk shape of the graph. Nodes are stored as an ordered
// list per stack so sibling insertion order survives the round trip.
type graphFile struct {
	Version int         `yaml:"version"`
	Stacks  []stackFile `yaml:"stacks"`
}

type stackFile struct {
	Name  string  `yaml:"name"`
	Trunk string  `yaml:"trunk"`
	Root  string  `yaml:"root"`
	Nodes []*Node `yaml:"nodes"`
}

// Store persists the graph under the repository's .git directory
type Store struct {
	path string
}

// NewStore creates a store writing to <gitDir>/sage/graph.yaml
func NewStore(gitDir string) *Store {
	return &Store{path: filepath.Join(gitDir, "sage", "graph.yaml")}
}

// Path returns the graph file path
func (st *Store) Path() string { return st.path }

// Load reads the graph from disk. A missing file yields an empty graph; a
// corrupt or schema-mismatched file fails with GraphIntegrityError.
func (st *Store) Load() (*Graph, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read stack graph: %w", err)
	}

	var file graphFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, sageerrors.NewGraphIntegrityError(st.path, "not valid YAML", err)
	}
	if file.Version != fileVersion {
		return nil, sageerrors.NewGraphIntegrityError(st.path,
			fmt.Sprintf("schema version %d, expected %d", file.Version, fileVersion), nil)
	}

	g := New()
	for _, sf := range file.Stacks {
		s, err := buildStack(st.path, sf)
		if err != nil {
			return nil, err
		}
		g.stacks[sf.Name] = s
	}
	g.reindex()

	// A branch tracked in two stacks would make node identity ambiguous
	seen := make(map[string]string)
	for name, s := range g.stacks {
		for branch := range s.nodes {
			if other, ok := seen[branch]; ok {
				return nil, sageerrors.NewGraphIntegrityError(st.path,
					fmt.Sprintf("branch %s appears in stacks %s and %s", branch, other, name), nil)
			}
			seen[branch] = name
		}
	}
	return g, nil
}

func buildStack(path string, sf stackFile) (*Stack, error) {
	if sf.Name == "" || sf.Root == "" || sf.Trunk == "" {
		return nil, sageerrors.NewGraphIntegrityError(path,
			fmt.Sprintf("stack %q is missing name, trunk or root", sf.Name), nil)
	}

	s := &Stack{
		name:     sf.Name,
		trunk:    sf.Trunk,
		root:     sf.Root,
		nodes:    make(map[string]*Node, len(sf.Nodes)),
		children: make(map[string][]string),
	}

	for _, n := range sf.Nodes {
		if n.Branch == "" {
			return nil, sageerrors.NewGraphIntegrityError(path,
				fmt.Sprintf("stack %s contains a node without a branch name", sf.Name), nil)
		}
		if _, ok := s.nodes[n.Branch]; ok {
			return nil, sageerrors.NewGraphIntegrityError(path,
				fmt.Sprintf("stack %s contains branch %s twice", sf.Name, n.Branch), nil)
		}
		s.nodes[n.Branch] = n
	}

	rootNode, ok := s.nodes[sf.Root]
	if !ok {
		return nil, sageerrors.NewGraphIntegrityError(path,
			fmt.Sprintf("stack %s root %s has no node", sf.Name, sf.Root), nil)
	}
	if rootNode.Parent != "" {
		return nil, sageerrors.NewGraphIntegrityError(path,
			fmt.Sprintf("stack %s root %s has a parent", sf.Name, sf.Root), nil)
	}

	// Rebuild children lists in file order and validate parent links
	for _, n := range sf.Nodes {
		if n.Branch == sf.Root {
			continue
		}
		if n.Parent == "" {
			return nil, sageerrors.NewGraphIntegrityError(path,
				fmt.Sprintf("stack %s branch %s has no parent and is not the root", sf.Name, n.Branch), nil)
		}
		if _, ok := s.nodes[n.Parent]; !ok {
			return nil, sageerrors.NewGraphIntegrityError(path,
				fmt.Sprintf("stack %s branch %s has unknown parent %s", sf.Name, n.Branch, n.Parent), nil)
		}
		s.children[n.Parent] = append(s.children[n.Parent], n.Branch)
	}

	// Every node must be reachable from the root; anything left over sits on
	// a cycle or a disconnected island.
	reachable := 0
	for range s.TopologicalOrder() {
		reachable++
	}
	if reachable != len(s.nodes) {
		return nil, sageerrors.NewGraphIntegrityError(path,
			fmt.Sprintf("stack %s has %d nodes but only %d reachable from root %s",
				sf.Name, len(s.nodes), reachable, sf.Root), nil)
	}
	return s, nil
}

// ReadRaw returns the raw bytes of the graph file, or nil when it does not
// exist yet. Used to capture a by-value pre-operation snapshot for undo.
func (st *Store) ReadRaw() ([]byte, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read stack graph: %w", err)
	}
	return data, nil
}

// WriteRaw atomically replaces the graph file with previously captured bytes
func (st *Store) WriteRaw(data []byte) error {
	return st.writeAtomic(data)
}

// Remove deletes the graph file; removing a missing file is not an error.
// Used when undoing the operation that created the file in the first place.
func (st *Store) Remove() error {
	err := os.Remove(st.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stack graph: %w", err)
	}
	return nil
}

// Save writes the graph atomically: marshal to a temp file in the same
// directory, then rename over the previous file so a crash never leaves a
// partially written graph.
func (st *Store) Save(g *Graph) error {
	file := graphFile{Version: fileVersion}
	for _, name := range g.StackNames() {
		s := g.stacks[name]
		sf := stackFile{Name: s.name, Trunk: s.trunk, Root: s.root}
		for n := range s.TopologicalOrder() {
			sf.Nodes = append(sf.Nodes, n)
		}
		file.Stacks = append(file.Stacks, sf)
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to marshal stack graph: %w", err)
	}
	return st.writeAtomic(data)
}

func (st *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create graph directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "graph-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp graph file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close graph file: %w", err)
	}
	if err := os.Rename(tmpName, st.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace graph file: %w", err)
	}
	return nil
}
