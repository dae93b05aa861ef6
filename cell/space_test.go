package cell

import (
	"testing"

	"github.com/hupe1980/octogo/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace(t *testing.T) *Space {
	t.Helper()
	s, err := NewSpace(geom.Box{Min: geom.V(0, 0, 0), Max: geom.V(64, 64, 64)})
	require.NoError(t, err)
	return s
}

func TestGridBounds(t *testing.T) {
	b := Root.GridBounds()
	assert.Equal(t, [3]uint32{0, 0, 0}, b.Min)
	assert.Equal(t, [3]uint32{GridSize, GridSize, GridSize}, b.Max)

	// Octant 5 = +x, +z.
	b = MustNew(5).GridBounds()
	half := uint32(GridSize / 2)
	assert.Equal(t, [3]uint32{half, 0, half}, b.Min)
	assert.Equal(t, half, b.Side())

	child := MustNew(5, 3).GridBounds()
	assert.True(t, b.ContainsBounds(child))
	assert.True(t, b.Intersects(child))
	assert.False(t, MustNew(4).GridBounds().Intersects(b))
}

func TestFromGrid(t *testing.T) {
	a, err := FromGrid(GridSize-1, 0, GridSize-1, 3)
	require.NoError(t, err)
	assert.Equal(t, MustNew(5, 5, 5), a)
	assert.True(t, a.GridBounds().ContainsPoint(GridSize-1, 0, GridSize-1))

	_, err = FromGrid(GridSize, 0, 0, 1)
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = FromGrid(0, 0, 0, MaxLevel+1)
	require.ErrorIs(t, err, ErrMaxLevel)
}

func TestNewSpace_Degenerate(t *testing.T) {
	_, err := NewSpace(geom.Box{Min: geom.V(0, 0, 0), Max: geom.V(1, 0, 1)})
	require.Error(t, err)
}

func TestSpace_CellBox(t *testing.T) {
	s := testSpace(t)

	assert.Equal(t, s.World(), s.CellBox(Root))
	assert.Equal(t, geom.Box{Min: geom.V(32, 0, 0), Max: geom.V(64, 32, 32)}, s.CellBox(MustNew(1)))
	assert.Equal(t, geom.Box{Min: geom.V(48, 16, 0), Max: geom.V(64, 32, 16)}, s.CellBox(MustNew(1, 3)))
}

func TestSpace_CellAtDepth(t *testing.T) {
	s := testSpace(t)

	assert.Equal(t, MustNew(1, 3), s.CellAtDepth(geom.V(50, 20, 5), 2))
	assert.Equal(t, Root, s.CellAtDepth(geom.V(50, 20, 5), 0))
	// Outside points clamp onto the world boundary.
	assert.Equal(t, MustNew(7, 7), s.CellAtDepth(geom.V(100, 100, 100), 2))
	assert.Equal(t, MustNew(0, 0), s.CellAtDepth(geom.V(-5, -5, -5), 2))
}

func TestSpace_SmallestContaining(t *testing.T) {
	s := testSpace(t)

	// A box equal to a level-2 cell resolves to exactly that cell.
	target := MustNew(1, 3)
	assert.Equal(t, target, s.SmallestContaining(s.CellBox(target), 8))

	// Straddling the world center only fits the root.
	assert.Equal(t, Root, s.SmallestContaining(geom.Box{Min: geom.V(30, 30, 30), Max: geom.V(34, 34, 34)}, 8))

	// Depth is capped.
	small := geom.Box{Min: geom.V(1, 1, 1), Max: geom.V(1.1, 1.1, 1.1)}
	assert.Equal(t, 3, s.SmallestContaining(small, 3).Level())

	// A degenerate point box still resolves.
	p := geom.Box{Min: geom.V(10, 10, 10), Max: geom.V(10, 10, 10)}
	assert.Equal(t, 5, s.SmallestContaining(p, 5).Level())
}

func TestSpace_SmallestContaining_NonDyadicWorld(t *testing.T) {
	tests := []struct {
		name     string
		world    geom.Box
		min, max float64
	}{
		{"offset world", geom.NewBox(geom.V(0.1, 0.1, 0.1), geom.V(7.3, 7.3, 7.3)), 1.9000000000000001, 3.7},
		{"negative world", geom.NewBox(geom.V(-17.9, -17.9, -17.9), geom.V(11.9, 11.9, 11.9)), -10.45, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSpace(tt.world)
			require.NoError(t, err)

			b := geom.NewBox(geom.V(tt.min, tt.min, tt.min), geom.V(tt.max, tt.max, tt.max))
			assert.Equal(t, MustNew(0, 7), s.SmallestContaining(b, 8))
		})
	}
}
