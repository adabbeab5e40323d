package monitor

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/depthdust/internal/pipeline"
	"github.com/banshee-data/depthdust/internal/projection"
)

// DefaultMaxChartPoints caps each scatter series.
const DefaultMaxChartPoints = 8000

// ChartOptions controls HTML chart output.
type ChartOptions struct {
	// MaxPoints caps each series by striding; 0 uses DefaultMaxChartPoints.
	MaxPoints int
	// AssetsHost overrides where the echarts script is loaded from.
	AssetsHost string
}

func (o ChartOptions) maxPoints() int {
	if o.MaxPoints > 0 {
		return o.MaxPoints
	}
	return DefaultMaxChartPoints
}

func (o ChartOptions) init(title string) opts.Initialization {
	in := opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "700px"}
	if o.AssetsHost != "" {
		in.AssetsHost = o.AssetsHost
	}
	return in
}

func downsample(pts []projection.Point3D, limit int) ([]opts.ScatterData, int) {
	stride := 1
	if len(pts) > limit {
		stride = int(math.Ceil(float64(len(pts)) / float64(limit)))
	}
	data := make([]opts.ScatterData, 0, len(pts)/stride+1)
	for i := 0; i < len(pts); i += stride {
		data = append(data, opts.ScatterData{Value: []interface{}{pts[i].X, pts[i].Y}})
	}
	return data, stride
}

// CloudChart builds a front-view (x, y) scatter of the view's point sets
// and live particles, coloured by the view's policy.
func CloudChart(view pipeline.View, o ChartOptions) *charts.Scatter {
	maxPts := o.maxPoints()
	cloud, stride := downsample(view.Points.Cloud, maxPts)
	bolts, _ := downsample(view.Points.Contour, maxPts)
	border, _ := downsample(view.Points.Border, maxPts)

	positions := make([]projection.Point3D, len(view.Particles))
	for i, p := range view.Particles {
		positions[i] = p.Position
	}
	parts, _ := downsample(positions, maxPts)

	policy := view.Policy
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("depthdust cycle")),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Cycle %d", view.Stats.Cycle),
			Subtitle: fmt.Sprintf("mode=%s particles=%d contours=%d stride=%d", policy.Mode, len(view.Particles), view.Stats.Contours, stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("cloud", cloud,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: policy.CloudColor().Hex()}))
	scatter.AddSeries("bolts", bolts,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: policy.BoltColor().Hex()}))
	scatter.AddSeries("border", border,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: policy.BorderColor().Hex()}))
	scatter.AddSeries("particles", parts,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: policy.Colors.LightBlue.Hex()}))
	return scatter
}

// CycleChart builds a line chart of particle count and spawns per cycle.
func CycleChart(samples []CycleSample, o ChartOptions) *charts.Line {
	xs := make([]uint64, len(samples))
	particles := make([]opts.LineData, len(samples))
	spawned := make([]opts.LineData, len(samples))
	rejected := make([]opts.LineData, len(samples))
	for i, s := range samples {
		xs[i] = s.Cycle
		particles[i] = opts.LineData{Value: s.Particles}
		spawned[i] = opts.LineData{Value: s.Spawned}
		rejected[i] = opts.LineData{Value: s.Rejected}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("depthdust cycles")),
		charts.WithTitleOpts(opts.Title{Title: "Cycles", Subtitle: fmt.Sprintf("samples=%d", len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).
		AddSeries("particles", particles).
		AddSeries("spawned", spawned).
		AddSeries("rejected", rejected)
	return line
}

// WriteCloudChart renders CloudChart as a standalone HTML page.
func WriteCloudChart(w io.Writer, view pipeline.View, o ChartOptions) error {
	return CloudChart(view, o).Render(w)
}

// WriteReport writes report.html into dir with the cloud chart of view and
// the cycle chart of samples on one page, and returns its path.
func WriteReport(dir string, view pipeline.View, samples []CycleSample, o ChartOptions) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.PageTitle = "depthdust report"
	page.AddCharts(CloudChart(view, o), CycleChart(samples, o))

	path := filepath.Join(dir, "report.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return "", fmt.Errorf("render report: %w", err)
	}
	return path, f.Close()
}
