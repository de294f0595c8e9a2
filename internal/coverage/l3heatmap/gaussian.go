package l3heatmap

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// truncate is the kernel half-width in standard deviations.
const truncate = 4.0

// gaussianKernel returns a normalized 1-D Gaussian of radius
// int(truncate*sigma+0.5). sigma must be positive.
func gaussianKernel(sigma float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	inv := -0.5 / (sigma * sigma)
	for i := -radius; i <= radius; i++ {
		x := float64(i)
		k[i+radius] = math.Exp(inv * x * x)
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// reflect maps an out-of-range index into [0, n) by mirroring about the
// array edges, repeating the edge sample (d c b a | a b c d | d c b a).
func reflect(idx, n int) int {
	period := 2 * n
	m := idx % period
	if m < 0 {
		m += period
	}
	if m >= n {
		m = period - 1 - m
	}
	return m
}

// blur applies a separable Gaussian of the given sigma, in bins, to an
// nx-by-ny row-major field and returns a new slice. Sigma zero returns a
// copy. The reflect boundary keeps the total mass unchanged.
func blur(src []float64, nx, ny int, sigma float64) []float64 {
	out := append([]float64(nil), src...)
	if sigma == 0 {
		return out
	}
	k := gaussianKernel(sigma)
	radius := len(k) / 2

	line := make([]float64, max(nx, ny))
	// Along y (contiguous within each x row).
	for i := 0; i < nx; i++ {
		row := out[i*ny : (i+1)*ny]
		copy(line, row)
		for j := 0; j < ny; j++ {
			acc := 0.0
			for t := -radius; t <= radius; t++ {
				acc += k[t+radius] * line[reflect(j+t, ny)]
			}
			row[j] = acc
		}
	}
	// Along x.
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			line[i] = out[i*ny+j]
		}
		for i := 0; i < nx; i++ {
			acc := 0.0
			for t := -radius; t <= radius; t++ {
				acc += k[t+radius] * line[reflect(i+t, nx)]
			}
			out[i*ny+j] = acc
		}
	}
	return out
}

// FilterSigma converts a smoothing width given as a full width at half
// maximum in world units into a Gaussian sigma in bins.
func FilterSigma(widthMeters, meterPerBin float64) float64 {
	return widthMeters / meterPerBin / (2 * math.Sqrt(2*math.Ln2))
}
