package subdiv

import "github.com/hupe1980/octogo/cell"

// Kind classifies a node of an occupancy tree.
type Kind uint8

const (
	// Empty cells do not intersect the solid and never appear in a finished tree.
	Empty Kind = iota
	// Branch cells are partially covered and were subdivided further.
	Branch
	// Enclosed leaves lie entirely inside the solid.
	Enclosed
	// Boundary leaves are partially covered at the maximum depth.
	Boundary
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Branch:
		return "branch"
	case Enclosed:
		return "enclosed"
	case Boundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// IsLeaf reports whether the kind marks an emitted cell.
func (k Kind) IsLeaf() bool {
	return k == Enclosed || k == Boundary
}

// Node is a cell of an occupancy tree.
type Node struct {
	Address  cell.Address
	Kind     Kind
	Children []*Node
}

func (n *Node) hasLeaves() bool {
	if n.Kind.IsLeaf() {
		return true
	}
	for _, c := range n.Children {
		if c.hasLeaves() {
			return true
		}
	}
	return false
}

// Tree is the result of one build.
type Tree struct {
	Root *Node
}

// CollectCellIDs flattens the tree into parallel lists of leaf addresses and
// their enclosed flags, in depth-first octant order.
func (t *Tree) CollectCellIDs() ([]cell.Address, []bool) {
	var (
		ids      []cell.Address
		enclosed []bool
	)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind.IsLeaf() {
			ids = append(ids, n.Address)
			enclosed = append(enclosed, n.Kind == Enclosed)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if t.Root != nil {
		walk(t.Root)
	}
	return ids, enclosed
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	ids, _ := t.CollectCellIDs()
	return len(ids)
}
