package l4contour

import (
	"github.com/banshee-data/coverage.planner/internal/coverage"
	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
)

// Mask is a binary foreground image over an nx-by-ny grid.
type Mask struct {
	nx, ny int
	fg     []bool
	count  int
}

// Threshold marks every bin with a value strictly greater than tau. tau
// must be finite and within [0, max(heatmap)]; a mask with no foreground
// bins is an empty result.
func Threshold(heatmap *l1grid.Surface, tau float64) (*Mask, error) {
	if !coverage.IsFinite(tau) || tau < 0 {
		return nil, coverage.ConfigurationErrorf("contour threshold must be a non-negative number, got %v", tau)
	}
	if peak := heatmap.Max(); tau > peak {
		return nil, coverage.ConfigurationErrorf("contour threshold %g is above the heatmap maximum %g", tau, peak)
	}

	nx, ny := heatmap.Dims()
	m := &Mask{nx: nx, ny: ny, fg: make([]bool, nx*ny)}
	for idx, v := range heatmap.Values() {
		if v > tau {
			m.fg[idx] = true
			m.count++
		}
	}
	if m.count == 0 {
		return nil, coverage.EmptyResultErrorf("no contours found above threshold %g", tau)
	}
	return m, nil
}

// NewMask builds a mask from a row-major foreground slice indexed
// fg[i*ny+j].
func NewMask(nx, ny int, fg []bool) (*Mask, error) {
	if nx < 1 || ny < 1 || len(fg) != nx*ny {
		return nil, coverage.ConfigurationErrorf("mask of %d values does not fit %dx%d", len(fg), nx, ny)
	}
	m := &Mask{nx: nx, ny: ny, fg: append([]bool(nil), fg...)}
	for _, on := range m.fg {
		if on {
			m.count++
		}
	}
	return m, nil
}

// Dims returns the mask size.
func (m *Mask) Dims() (nx, ny int) { return m.nx, m.ny }

// Count returns the number of foreground bins.
func (m *Mask) Count() int { return m.count }

// At reports whether (i, j) is foreground. Out-of-range bins are
// background.
func (m *Mask) At(i, j int) bool {
	if i < 0 || i >= m.nx || j < 0 || j >= m.ny {
		return false
	}
	return m.fg[i*m.ny+j]
}

// components labels 8-connected foreground components. Labels start at 0
// and are assigned in raster order (j outer, i inner); background is -1.
func (m *Mask) components() (labels []int, n int) {
	labels = make([]int, len(m.fg))
	for i := range labels {
		labels[i] = -1
	}
	var queue []int
	for j := 0; j < m.ny; j++ {
		for i := 0; i < m.nx; i++ {
			idx := i*m.ny + j
			if !m.fg[idx] || labels[idx] >= 0 {
				continue
			}
			labels[idx] = n
			queue = append(queue[:0], idx)
			for len(queue) > 0 {
				cur := queue[0]
				queue = queue[1:]
				ci, cj := cur/m.ny, cur%m.ny
				for di := -1; di <= 1; di++ {
					for dj := -1; dj <= 1; dj++ {
						ni, nj := ci+di, cj+dj
						if !m.At(ni, nj) {
							continue
						}
						nidx := ni*m.ny + nj
						if labels[nidx] < 0 {
							labels[nidx] = n
							queue = append(queue, nidx)
						}
					}
				}
			}
			n++
		}
	}
	return labels, n
}
