package l1grid

import (
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/coverage.planner/internal/coverage"
)

// Surface is an nx-by-ny float field aligned to a GridIndex. Row i of the
// backing matrix is x bin i, column j is y bin j.
//
// Layer grids and combined heatmaps are both Surfaces. A Surface never
// changes after it is returned to a caller: every accessor that exposes
// values hands out a copy.
type Surface struct {
	grid *GridIndex
	data *mat.Dense
}

// NewSurfaceFromDense returns a Surface holding a copy of d. The matrix
// must be nx-by-ny for grid.
func NewSurfaceFromDense(grid *GridIndex, d mat.Matrix) (*Surface, error) {
	r, c := d.Dims()
	if r != grid.nx || c != grid.ny {
		return nil, coverage.ConfigurationErrorf(
			"surface is %dx%d, grid is %dx%d", r, c, grid.nx, grid.ny)
	}
	return &Surface{grid: grid, data: mat.DenseCopyOf(d)}, nil
}

// NewSurfaceFromValues returns a Surface over a row-major copy of values,
// indexed values[i*ny+j].
func NewSurfaceFromValues(grid *GridIndex, values []float64) (*Surface, error) {
	if len(values) != grid.nx*grid.ny {
		return nil, coverage.ConfigurationErrorf(
			"surface has %d values, grid needs %d", len(values), grid.nx*grid.ny)
	}
	data := append([]float64(nil), values...)
	return &Surface{grid: grid, data: mat.NewDense(grid.nx, grid.ny, data)}, nil
}

// Zeros returns an all-zero Surface for grid.
func Zeros(grid *GridIndex) *Surface {
	return &Surface{grid: grid, data: mat.NewDense(grid.nx, grid.ny, nil)}
}

// Grid returns the index the surface is aligned to.
func (s *Surface) Grid() *GridIndex { return s.grid }

// Dims returns the bin counts along x and y.
func (s *Surface) Dims() (nx, ny int) { return s.data.Dims() }

// At returns the value of bin (i, j).
func (s *Surface) At(i, j int) float64 { return s.data.At(i, j) }

// Sum returns the total mass of the surface.
func (s *Surface) Sum() float64 { return mat.Sum(s.data) }

// Max returns the largest bin value.
func (s *Surface) Max() float64 { return mat.Max(s.data) }

// Min returns the smallest bin value.
func (s *Surface) Min() float64 { return mat.Min(s.data) }

// Values returns a row-major copy of the bin values.
func (s *Surface) Values() []float64 {
	raw := s.data.RawMatrix()
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		out = append(out, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols]...)
	}
	return out
}

// Dense returns a copy of the backing matrix.
func (s *Surface) Dense() *mat.Dense { return mat.DenseCopyOf(s.data) }

// Scale returns a new Surface with every bin multiplied by f.
func (s *Surface) Scale(f float64) *Surface {
	var out mat.Dense
	out.Scale(f, s.data)
	return &Surface{grid: s.grid, data: &out}
}
