package cellstore

import "github.com/RoaringBitmap/roaring/v2"

// Kind distinguishes subdivided cells from cells holding elements.
type Kind uint8

const (
	// Leaf cells hold element surrogates.
	Leaf Kind = iota + 1
	// Node cells were split into eight children and hold no elements.
	Node
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Node:
		return "node"
	default:
		return "invalid"
	}
}

// Record is the content of one cell.
type Record struct {
	Kind     Kind
	Elements *roaring.Bitmap
}

// NewLeaf returns a leaf record holding the given surrogates.
func NewLeaf(elements ...uint32) Record {
	return Record{Kind: Leaf, Elements: roaring.BitmapOf(elements...)}
}

// NewNode returns an empty node record.
func NewNode() Record {
	return Record{Kind: Node, Elements: roaring.New()}
}

// IsLeaf reports whether r is a leaf.
func (r Record) IsLeaf() bool { return r.Kind == Leaf }

// IsNode reports whether r is a node.
func (r Record) IsNode() bool { return r.Kind == Node }

// Len returns the number of elements.
func (r Record) Len() int {
	if r.Elements == nil {
		return 0
	}
	return int(r.Elements.GetCardinality())
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := Record{Kind: r.Kind}
	if r.Elements != nil {
		out.Elements = r.Elements.Clone()
	} else {
		out.Elements = roaring.New()
	}
	return out
}

const (
	// entryOverhead approximates the per-entry cost of a map slot, the key and
	// the bitmap header.
	entryOverhead = 96
	elementBytes  = 4
)

func estimate(r Record) int64 {
	return entryOverhead + elementBytes*int64(r.Len())
}
