package l1grid

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/coverage.planner/internal/coverage"
)

func square(size float64) orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{size, size}}
}

func TestNewGridIndex_CountsAndEdges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bounds  orb.Bound
		buffer  float64
		binSize float64
		wantNX  int
		wantNY  int
	}{
		{"exact fit", square(100), 0, 1, 100, 100},
		{"floor of ratio", square(100), 0, 3, 33, 33},
		{"rectangular", orb.Bound{Min: orb.Point{10, -20}, Max: orb.Point{50, 0}}, 0, 2, 20, 10},
		{"buffered", square(100), 5, 3, 33, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := NewGridIndex(tt.bounds, tt.buffer, tt.binSize)
			require.NoError(t, err)

			nx, ny := g.Dims()
			assert.Equal(t, tt.wantNX, nx)
			assert.Equal(t, tt.wantNY, ny)

			xe, ye := g.XEdges(), g.YEdges()
			require.Len(t, xe, nx+1)
			require.Len(t, ye, ny+1)
			assert.Equal(t, tt.bounds.Min[0]-tt.buffer, xe[0])
			assert.Equal(t, tt.bounds.Max[0]+tt.buffer, xe[nx])
			assert.Equal(t, tt.bounds.Min[1]-tt.buffer, ye[0])
			assert.Equal(t, tt.bounds.Max[1]+tt.buffer, ye[ny])

			dx, _ := g.CellSize()
			for i := 1; i < len(xe); i++ {
				assert.InDelta(t, dx, xe[i]-xe[i-1], 1e-9)
			}
		})
	}
}

func TestNewGridIndex_RejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bounds  orb.Bound
		buffer  float64
		binSize float64
	}{
		{"zero bin", square(10), 0, 0},
		{"negative bin", square(10), 0, -1},
		{"nan bin", square(10), 0, math.NaN()},
		{"negative buffer", square(10), -1, 1},
		{"degenerate extent", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 0}}, 0, 1},
		{"smaller than a bin", square(2), 0, 3},
		{"inverted bound", orb.Bound{Min: orb.Point{5, 5}, Max: orb.Point{0, 0}}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := NewGridIndex(tt.bounds, tt.buffer, tt.binSize)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, coverage.ErrConfiguration)
		})
	}
}

func TestGridIndex_WorldBinRoundTrip(t *testing.T) {
	t.Parallel()

	g, err := NewGridIndex(square(100), 0, 1)
	require.NoError(t, err)

	i, j := g.WorldToBin(orb.Point{12.7, 40.2})
	assert.Equal(t, 12, i)
	assert.Equal(t, 40, j)
	assert.Equal(t, orb.Point{12, 40}, g.BinToWorld(i, j))
	assert.Equal(t, orb.Point{12.5, 40.5}, g.BinCenter(i, j))
	assert.Equal(t, orb.Point{100, 100}, g.BinToWorld(100, 100))

	i, j = g.WorldToBin(orb.Point{-0.5, 150})
	assert.Equal(t, -1, i)
	assert.Equal(t, 150, j)
	assert.False(t, g.Contains(i, j))
	assert.True(t, g.Contains(0, 99))
}

func TestGridIndex_BinOfFollowsHistogramRules(t *testing.T) {
	t.Parallel()

	g, err := NewGridIndex(square(10), 0, 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		p      orb.Point
		wantI  int
		wantJ  int
		wantOK bool
	}{
		{"interior", orb.Point{3.5, 4.5}, 3, 4, true},
		{"left edge is inclusive", orb.Point{3, 4}, 3, 4, true},
		{"origin", orb.Point{0, 0}, 0, 0, true},
		{"last edge is inclusive", orb.Point{10, 10}, 9, 9, true},
		{"outside right", orb.Point{10.0001, 5}, 0, 0, false},
		{"outside below", orb.Point{5, -0.1}, 0, 0, false},
		{"nan", orb.Point{math.NaN(), 5}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			i, j, ok := g.BinOf(tt.p)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantI, i)
				assert.Equal(t, tt.wantJ, j)
			}
		})
	}
}

func TestGridIndex_BufferedCellSize(t *testing.T) {
	t.Parallel()

	g, err := NewGridIndex(square(100), 10, 3)
	require.NoError(t, err)

	dx, dy := g.CellSize()
	assert.InDelta(t, 120.0/33.0, dx, 1e-12)
	assert.InDelta(t, 120.0/33.0, dy, 1e-12)
	assert.InDelta(t, dx*dy, g.CellArea(), 1e-12)
	assert.Equal(t, orb.Point{-10, -10}, g.Origin())
	assert.Equal(t, 10.0, g.Buffer())
	assert.Equal(t, 3.0, g.BinSize())
}
