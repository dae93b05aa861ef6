package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBox() Box {
	return Box{Min: V(0, 0, 0), Max: V(1, 1, 1)}
}

func TestBox_Predicates(t *testing.T) {
	b := unitBox()

	assert.True(t, b.Intersects(Box{Min: V(0.5, 0.5, 0.5), Max: V(2, 2, 2)}))
	assert.False(t, b.Intersects(Box{Min: V(1, 0, 0), Max: V(2, 1, 1)}), "face contact is not overlap")
	assert.True(t, b.Contains(Box{Min: V(0, 0, 0), Max: V(0.5, 0.5, 0.5)}))
	assert.False(t, b.Contains(Box{Min: V(0.5, 0.5, 0.5), Max: V(1.5, 1, 1)}))

	flat := Box{Min: V(0, 0, 1), Max: V(1, 1, 1)}
	assert.True(t, flat.IsDegenerate())
	assert.True(t, flat.Intersects(Box{Min: V(0, 0, 1), Max: V(1, 1, 2)}), "flat boxes use closed intervals")
}

func TestBox_PredicatesTolerateRounding(t *testing.T) {
	// 0.1 + 1.8 rounds to 1.9000000000000001, 3.6999999999999997 is one ulp
	// below 3.7.
	b := Box{Min: V(1.9000000000000001, 1.9000000000000001, 1.9000000000000001), Max: V(3.7, 3.7, 3.7)}
	c := Box{Min: V(1.9, 1.9, 1.9), Max: V(3.6999999999999997, 3.6999999999999997, 3.6999999999999997)}

	assert.True(t, b.Contains(c))
	assert.True(t, NewCuboid(b).Contains(c))

	above := Box{Min: V(3.6999999999999997, 1.9, 1.9), Max: V(5.5, 3.7, 3.7)}
	assert.False(t, b.Intersects(above))
	assert.False(t, NewCuboid(b).Intersects(above))
}

func TestBox_Corners(t *testing.T) {
	c := unitBox().Corners()
	assert.Equal(t, V(0, 0, 0), c[0])
	assert.Equal(t, V(1, 0, 0), c[1])
	assert.Equal(t, V(0, 1, 0), c[2])
	assert.Equal(t, V(0, 0, 1), c[4])
	assert.Equal(t, V(1, 1, 1), c[7])
}

func TestConvexPolyhedron_Cuboid(t *testing.T) {
	p := NewCuboid(Box{Min: V(0, 0, 0), Max: V(4, 4, 4)})

	assert.Equal(t, Box{Min: V(0, 0, 0), Max: V(4, 4, 4)}, p.Bounds())
	assert.True(t, p.Contains(Box{Min: V(0, 0, 0), Max: V(4, 4, 4)}), "a cell equal to the solid is enclosed")
	assert.True(t, p.Contains(Box{Min: V(1, 1, 1), Max: V(2, 2, 2)}))
	assert.False(t, p.Contains(Box{Min: V(3, 3, 3), Max: V(5, 5, 5)}))
	assert.True(t, p.Intersects(Box{Min: V(3, 3, 3), Max: V(5, 5, 5)}))
	assert.False(t, p.Intersects(Box{Min: V(4, 0, 0), Max: V(8, 4, 4)}))
}

func TestConvexPolyhedron_Tetrahedron(t *testing.T) {
	verts := []Vec3{V(0, 0, 0), V(4, 0, 0), V(0, 4, 0), V(0, 0, 4)}
	faces := [][]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	p, err := NewConvexPolyhedron(verts, faces)
	require.NoError(t, err)

	assert.True(t, p.Contains(Box{Min: V(0, 0, 0), Max: V(1, 1, 1)}))
	assert.False(t, p.Contains(Box{Min: V(1, 1, 1), Max: V(2, 2, 2)}))
	assert.True(t, p.Intersects(Box{Min: V(1, 1, 1), Max: V(2, 2, 2)}))
	// Inside the bounding box but beyond the slanted face.
	assert.False(t, p.Intersects(Box{Min: V(3, 3, 3), Max: V(4, 4, 4)}))
}

func TestConvexPolyhedron_Invalid(t *testing.T) {
	_, err := NewConvexPolyhedron([]Vec3{V(0, 0, 0)}, nil)
	require.ErrorIs(t, err, ErrInvalidSolid)

	verts := []Vec3{V(0, 0, 0), V(1, 0, 0), V(0, 1, 0), V(0, 0, 1)}
	_, err = NewConvexPolyhedron(verts, [][]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 9}})
	require.ErrorIs(t, err, ErrInvalidSolid)
}

func TestFace(t *testing.T) {
	f, err := NewFace(V(0, 0, 2), V(4, 0, 2), V(4, 4, 2), V(0, 4, 2))
	require.NoError(t, err)

	assert.True(t, f.Intersects(Box{Min: V(0, 0, 0), Max: V(2, 2, 2)}), "touching counts for faces")
	assert.True(t, f.Intersects(Box{Min: V(1, 1, 1), Max: V(3, 3, 3)}))
	assert.False(t, f.Intersects(Box{Min: V(0, 0, 3), Max: V(2, 2, 4)}))
	assert.False(t, f.Contains(Box{Min: V(1, 1, 1), Max: V(3, 3, 3)}))

	_, err = NewFace(V(0, 0, 0), V(1, 1, 1))
	require.ErrorIs(t, err, ErrInvalidSolid)
}

func TestSegment(t *testing.T) {
	s := Segment{A: V(0, 0, 0), B: V(4, 4, 4)}

	assert.True(t, s.Intersects(Box{Min: V(1, 1, 1), Max: V(2, 2, 2)}))
	assert.False(t, s.Intersects(Box{Min: V(3, 0, 0), Max: V(4, 1, 1)}))
	assert.Equal(t, Box{Min: V(0, 0, 0), Max: V(4, 4, 4)}, s.Bounds())

	axial := Segment{A: V(1, 1, 0), B: V(1, 1, 4)}
	assert.True(t, axial.Intersects(Box{Min: V(0, 0, 1), Max: V(2, 2, 2)}))
	assert.False(t, axial.Intersects(Box{Min: V(2, 2, 1), Max: V(3, 3, 2)}))
}
