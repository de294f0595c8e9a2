package render

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/coverage.planner/internal/coverage/l1grid"
	"github.com/banshee-data/coverage.planner/internal/coverage/pipeline"
	"github.com/banshee-data/coverage.planner/internal/fsutil"
)

// Options controls what is drawn and the image size.
type Options struct {
	Width, Height vg.Length
	Title         string
	// Colors is the number of heatmap palette steps.
	Colors  int
	Regions bool
	Paths   bool
}

// DefaultOptions draws everything on an 8x8 inch canvas.
func DefaultOptions() Options {
	return Options{
		Width:   8 * vg.Inch,
		Height:  8 * vg.Inch,
		Title:   "Coverage plan",
		Colors:  64,
		Regions: true,
		Paths:   true,
	}
}

// heatmapGrid adapts a Surface to plotter.GridXYZ with bin-centre
// coordinates.
type heatmapGrid struct {
	s *l1grid.Surface
}

func (g heatmapGrid) Dims() (c, r int)   { return g.s.Dims() }
func (g heatmapGrid) Z(c, r int) float64 { return g.s.At(c, r) }
func (g heatmapGrid) Min() float64       { return g.s.Min() }
func (g heatmapGrid) Max() float64       { return g.s.Max() }

func (g heatmapGrid) X(c int) float64 { return g.s.Grid().BinCenter(c, 0)[0] }
func (g heatmapGrid) Y(r int) float64 { return g.s.Grid().BinCenter(0, r)[1] }

// Plot builds the plot for res.
func Plot(res *pipeline.Result, opts Options) (*plot.Plot, error) {
	if res == nil || res.Heatmap == nil {
		return nil, fmt.Errorf("render: result has no heatmap")
	}
	if opts.Colors <= 1 {
		opts.Colors = DefaultOptions().Colors
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	hm := plotter.NewHeatMap(heatmapGrid{s: res.Heatmap}, palette.Heat(opts.Colors, 1))
	hm.Rasterized = true
	p.Add(hm)

	if opts.Regions {
		for _, region := range res.Regions {
			for _, r := range region.Polygon() {
				line, err := ringLine(r)
				if err != nil {
					return nil, err
				}
				line.Color = color.Black
				line.Width = vg.Points(1)
				p.Add(line)
			}
		}
	}

	if opts.Paths && len(res.Paths) > 0 {
		depth := 0
		for _, path := range res.Paths {
			if path.Ring+1 > depth {
				depth = path.Ring + 1
			}
		}
		colors := generateColors(depth)
		for _, path := range res.Paths {
			line, err := plotter.NewLine(toXYs(path.Line))
			if err != nil {
				return nil, err
			}
			line.Color = colors[path.Ring]
			line.Width = vg.Points(1.5)
			p.Add(line)
		}
	}
	return p, nil
}

// WriteImage draws res in the given format ("png", "svg", "pdf", ...) to w.
func WriteImage(w io.Writer, format string, res *pipeline.Result, opts Options) error {
	p, err := Plot(res, opts)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, format)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("render: write image: %w", err)
	}
	return nil
}

// Save draws res to path on fs. The format follows the file extension.
func Save(fs fsutil.FileSystem, path string, res *pipeline.Result, opts Options) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("render: %s has no file extension", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("render: create output dir: %w", err)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := WriteImage(f, format, res, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ringLine(r orb.Ring) (*plotter.Line, error) {
	return plotter.NewLine(toXYs(orb.LineString(r)))
}

func toXYs(ls orb.LineString) plotter.XYs {
	xys := make(plotter.XYs, len(ls))
	for i, pt := range ls {
		xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
	}
	return xys
}

// generateColors spreads n distinct hues around the colour wheel.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := uint8(l * 255)
		return v, v, v
	}
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255),
		uint8(hueToRGB(p, q, h) * 255),
		uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
