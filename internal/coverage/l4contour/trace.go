package l4contour

// Directions of a crack edge in bin-corner space.
const (
	east = iota
	north
	west
	south
)

// corner is a bin-corner coordinate: corner (i, j) is the lower-left
// corner of bin (i, j).
type corner struct{ i, j int }

// crack is a unit bin edge separating a foreground bin from background,
// directed so the foreground bin lies on its left.
type crack struct {
	from, to corner
	dir      int
	pixel    int
}

// loop is one closed boundary in corner coordinates with collinear
// vertices removed.
type loop struct {
	vertices []corner
	// area is the signed shoelace area in bins: positive for outer
	// boundaries, negative for holes.
	area  float64
	pixel int
}

// traceLoops follows every crack of the mask into closed loops. Loops are
// returned in the raster order of the bin that produced their first crack.
func traceLoops(m *Mask) []loop {
	cracks := collectCracks(m)
	if len(cracks) == 0 {
		return nil
	}

	// Every corner has at most two outgoing cracks.
	stride := m.ny + 1
	outgoing := make([][2]int32, (m.nx+1)*stride)
	for v := range outgoing {
		outgoing[v] = [2]int32{-1, -1}
	}
	for idx, c := range cracks {
		v := c.from.i*stride + c.from.j
		if outgoing[v][0] < 0 {
			outgoing[v][0] = int32(idx)
		} else {
			outgoing[v][1] = int32(idx)
		}
	}

	// next picks the successor of crack idx. At a pinch corner the right
	// turn is taken, which joins diagonally touching bins.
	next := func(idx int) int {
		c := cracks[idx]
		out := outgoing[c.to.i*stride+c.to.j]
		if out[1] < 0 {
			return int(out[0])
		}
		if cracks[out[0]].dir == (c.dir+3)%4 {
			return int(out[0])
		}
		return int(out[1])
	}

	used := make([]bool, len(cracks))
	var loops []loop
	for start := range cracks {
		if used[start] {
			continue
		}
		var (
			vertices []corner
			dirs     []int
		)
		cur := start
		for steps := 0; steps <= len(cracks); steps++ {
			used[cur] = true
			vertices = append(vertices, cracks[cur].from)
			dirs = append(dirs, cracks[cur].dir)
			cur = next(cur)
			if cur == start {
				break
			}
		}
		kept := simplifyLoop(vertices, dirs)
		loops = append(loops, loop{
			vertices: kept,
			area:     shoelace(kept),
			pixel:    cracks[start].pixel,
		})
	}
	return loops
}

// collectCracks emits the boundary cracks of every foreground bin in
// raster order, counter-clockwise around each bin.
func collectCracks(m *Mask) []crack {
	var cracks []crack
	for j := 0; j < m.ny; j++ {
		for i := 0; i < m.nx; i++ {
			if !m.At(i, j) {
				continue
			}
			pixel := i*m.ny + j
			if !m.At(i, j-1) {
				cracks = append(cracks, crack{corner{i, j}, corner{i + 1, j}, east, pixel})
			}
			if !m.At(i+1, j) {
				cracks = append(cracks, crack{corner{i + 1, j}, corner{i + 1, j + 1}, north, pixel})
			}
			if !m.At(i, j+1) {
				cracks = append(cracks, crack{corner{i + 1, j + 1}, corner{i, j + 1}, west, pixel})
			}
			if !m.At(i-1, j) {
				cracks = append(cracks, crack{corner{i, j + 1}, corner{i, j}, south, pixel})
			}
		}
	}
	return cracks
}

// simplifyLoop keeps only the corners where the boundary changes
// direction.
func simplifyLoop(vertices []corner, dirs []int) []corner {
	n := len(vertices)
	kept := make([]corner, 0, n)
	for k := 0; k < n; k++ {
		prev := dirs[(k+n-1)%n]
		if dirs[k] != prev {
			kept = append(kept, vertices[k])
		}
	}
	return kept
}

// shoelace returns the signed area of a closed corner polygon.
func shoelace(vertices []corner) float64 {
	n := len(vertices)
	sum := 0
	for k := 0; k < n; k++ {
		a, b := vertices[k], vertices[(k+1)%n]
		sum += a.i*b.j - b.i*a.j
	}
	return float64(sum) / 2
}
