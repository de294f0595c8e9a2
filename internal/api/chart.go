package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/coverage.planner/internal/coverage/pipeline"
	"github.com/banshee-data/coverage.planner/internal/httputil"
)

const defaultMaxCells = 20000

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// handleHeatmap renders the latest heatmap as an echarts page.
// Query params:
//   - max_cells (optional; default 20000) to reduce payload size
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	maxCells := defaultMaxCells
	if mc := r.URL.Query().Get("max_cells"); mc != "" {
		if v, err := strconv.Atoi(mc); err == nil && v >= 100 && v <= 250000 {
			maxCells = v
		}
	}

	res, err := s.Latest()
	if err != nil {
		writeError(w, err)
		return
	}
	hm := heatmapChart(res, maxCells)

	var buf bytes.Buffer
	if err := hm.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render heatmap chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// heatmapStride returns the bin step that keeps an nx by ny grid within
// maxCells.
func heatmapStride(nx, ny, maxCells int) int {
	if nx*ny <= maxCells {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(nx*ny) / float64(maxCells))))
}

func heatmapChart(res *pipeline.Result, maxCells int) *charts.HeatMap {
	surface := res.Heatmap
	grid := surface.Grid()
	nx, ny := surface.Dims()
	stride := heatmapStride(nx, ny, maxCells)

	var xLabels, yLabels []string
	for i := 0; i < nx; i += stride {
		xLabels = append(xLabels, strconv.FormatFloat(grid.BinCenter(i, 0)[0], 'f', 1, 64))
	}
	for j := 0; j < ny; j += stride {
		yLabels = append(yLabels, strconv.FormatFloat(grid.BinCenter(0, j)[1], 'f', 1, 64))
	}

	data := make([]opts.HeatMapData, 0, len(xLabels)*len(yLabels))
	for ci, i := 0, 0; i < nx; ci, i = ci+1, i+stride {
		for cj, j := 0, 0; j < ny; cj, j = cj+1, j+stride {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{ci, cj, surface.At(i, j)}})
		}
	}

	maxVal := surface.Max()
	if maxVal <= 0 {
		maxVal = 1
	}
	summary := res.Summary()

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Coverage heatmap", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Coverage heatmap",
			Subtitle: fmt.Sprintf("run=%s regions=%d paths=%d stride=%d", summary.RunID, summary.Regions, summary.Paths, stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: yLabels, Name: "Y (m)", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(xLabels).AddSeries("heatmap", data)
	return hm
}
