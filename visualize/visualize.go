// Package visualize draws batches of series with their forecasts.
//
// Every series gets its own panel. Panels are laid out in a grid, history
// drawn as a solid line, the prediction as a dashed line and an optional
// prediction interval as a shaded band. Missing values leave gaps.
package visualize

import (
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	// ErrEmptyChart is returned when a chart has nothing to draw.
	ErrEmptyChart = errors.New("visualize: chart has no data")
	// ErrUnsupportedFormat is returned for an output format other than png, svg or pdf.
	ErrUnsupportedFormat = errors.New("visualize: unsupported format")
)

var (
	historyColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	predictionColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	bandColor       = color.RGBA{R: 214, G: 39, B: 40, A: 60}
)

// Chart describes a batch plot. All matrices have one column per series;
// rows are time steps.
type Chart struct {
	History *mat.Dense // observed values, rows 0..n-1

	Prediction      *mat.Dense // predicted values
	PredictionStart int        // row of History the first prediction row belongs to

	Lower     *mat.Dense // optional lower interval bound
	Upper     *mat.Dense // optional upper interval bound
	BandStart int        // row of History the first band row belongs to

	Names   []string
	Title   string
	Width   vg.Length // default 10in
	Height  vg.Length // default 2.5in per grid row
	Columns int       // panels per grid row (default 2)
}

func (c *Chart) cols() int {
	switch {
	case c.History != nil:
		_, n := c.History.Dims()
		return n
	case c.Prediction != nil:
		_, n := c.Prediction.Dims()
		return n
	}
	return 0
}

func (c *Chart) validate() error {
	n := c.cols()
	if n == 0 {
		return ErrEmptyChart
	}
	for name, m := range map[string]*mat.Dense{"prediction": c.Prediction, "lower": c.Lower, "upper": c.Upper} {
		if m == nil {
			continue
		}
		if _, k := m.Dims(); k != n {
			return errors.Newf("visualize: %s has %d columns, expected %d", name, k, n)
		}
	}
	if (c.Lower == nil) != (c.Upper == nil) {
		return errors.New("visualize: lower and upper bounds must be given together")
	}
	return nil
}

func (c *Chart) name(j int) string {
	if j < len(c.Names) && c.Names[j] != "" {
		return c.Names[j]
	}
	return "series_" + strconv.Itoa(j)
}

// Render draws the chart to w in the given format ("png", "svg" or "pdf").
func Render(w io.Writer, format string, chart *Chart) error {
	if chart == nil {
		return ErrEmptyChart
	}
	if err := chart.validate(); err != nil {
		return err
	}

	format = strings.ToLower(format)
	switch format {
	case "png", "svg", "pdf":
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}

	n := chart.cols()
	gridCols := chart.Columns
	if gridCols <= 0 {
		gridCols = 2
	}
	gridCols = min(gridCols, n)
	gridRows := (n + gridCols - 1) / gridCols

	width := chart.Width
	if width <= 0 {
		width = 10 * vg.Inch
	}
	height := chart.Height
	if height <= 0 {
		height = vg.Length(gridRows) * 2.5 * vg.Inch
	}

	plots := make([][]*plot.Plot, gridRows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, gridCols)
	}
	for j := 0; j < n; j++ {
		p, err := chart.panel(j)
		if err != nil {
			return errors.Wrapf(err, "visualize: series %d", j)
		}
		plots[j/gridCols][j%gridCols] = p
	}
	for c := n % gridCols; c > 0 && c < gridCols; c++ {
		blank := plot.New()
		blank.HideAxes()
		plots[gridRows-1][c] = blank
	}

	canvas, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return errors.Wrap(err, "visualize: create canvas")
	}
	dc := draw.New(canvas)

	if chart.Title != "" {
		dc = drawTitle(dc, chart.Title)
	}

	tiles := draw.Tiles{
		Rows:      gridRows,
		Cols:      gridCols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c, p := range plots[r] {
			p.Draw(canvases[r][c])
		}
	}

	if _, err := canvas.WriteTo(w); err != nil {
		return errors.Wrap(err, "visualize: write image")
	}
	return nil
}

// SaveFile renders the chart to path. The format is taken from the file
// extension.
func SaveFile(path string, chart *Chart) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		return errors.Wrapf(ErrUnsupportedFormat, "no extension in %q", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "visualize: create file")
	}
	if err := Render(f, format, chart); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// drawTitle writes the chart title at the top of dc and returns the
// remaining area.
func drawTitle(dc draw.Canvas, title string) draw.Canvas {
	sty := plot.New().Title.TextStyle
	sty.XAlign = draw.XCenter
	sty.YAlign = draw.YTop
	top := dc.Max.Y
	dc.FillText(sty, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: top}, title)
	dc.Max.Y = top - sty.Height(title) - vg.Millimeter*2
	return dc
}

func (c *Chart) panel(j int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.name(j)
	p.X.Label.Text = "t"
	p.Add(plotter.NewGrid())

	if c.Lower != nil {
		lower := mat.Col(nil, j, c.Lower)
		upper := mat.Col(nil, j, c.Upper)
		for _, r := range finiteRuns(lower, upper) {
			band, err := bandPolygon(lower, upper, c.BandStart, r)
			if err != nil {
				return nil, err
			}
			p.Add(band)
		}
	}

	if c.History != nil {
		lines, err := segmentLines(mat.Col(nil, j, c.History), 0, historyColor, nil)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			p.Add(l)
		}
		if len(lines) > 0 {
			p.Legend.Add("observed", lines[0])
		}
	}

	if c.Prediction != nil {
		dashes := []vg.Length{vg.Points(4), vg.Points(2)}
		lines, err := segmentLines(mat.Col(nil, j, c.Prediction), c.PredictionStart, predictionColor, dashes)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			p.Add(l)
		}
		if len(lines) > 0 {
			p.Legend.Add("predicted", lines[0])
		}
	}

	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// run is a half-open range of consecutive finite values.
type run struct{ start, end int }

func finiteRuns(cols ...[]float64) []run {
	if len(cols) == 0 {
		return nil
	}
	var runs []run
	start := -1
	for i := range cols[0] {
		ok := true
		for _, c := range cols {
			if math.IsNaN(c[i]) || math.IsInf(c[i], 0) {
				ok = false
				break
			}
		}
		switch {
		case ok && start < 0:
			start = i
		case !ok && start >= 0:
			runs = append(runs, run{start, i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, run{start, len(cols[0])})
	}
	return runs
}

// segmentLines returns one line per run of finite values so that missing
// observations show up as gaps.
func segmentLines(values []float64, offset int, c color.Color, dashes []vg.Length) ([]*plotter.Line, error) {
	var lines []*plotter.Line
	for _, r := range finiteRuns(values) {
		xys := make(plotter.XYs, r.end-r.start)
		for i := r.start; i < r.end; i++ {
			xys[i-r.start] = plotter.XY{X: float64(offset + i), Y: values[i]}
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Color = c
		l.LineStyle.Width = vg.Points(1)
		l.LineStyle.Dashes = dashes
		lines = append(lines, l)
	}
	return lines, nil
}

func bandPolygon(lower, upper []float64, offset int, r run) (*plotter.Polygon, error) {
	n := r.end - r.start
	xys := make(plotter.XYs, 0, 2*n)
	for i := r.start; i < r.end; i++ {
		xys = append(xys, plotter.XY{X: float64(offset + i), Y: upper[i]})
	}
	for i := r.end - 1; i >= r.start; i-- {
		xys = append(xys, plotter.XY{X: float64(offset + i), Y: lower[i]})
	}
	poly, err := plotter.NewPolygon(xys)
	if err != nil {
		return nil, err
	}
	poly.Color = bandColor
	poly.LineStyle.Width = 0
	return poly, nil
}
