// =============================================================================
// Receipt Scanner - Charts
// =============================================================================
//
// This module draws the report charts as PNG images:
//
//   - "Total Quantity Sold per Item"  : vertical bars (gonum/plot)
//   - "Total Sales Amount per Item"   : horizontal bars (gonum/plot)
//   - "Top N Items by Quantity Sold"  : pie (go-chart)
//
// Both libraries rasterize with embedded fonts, so rendering needs no
// browser and no system fonts. The same charts are also written natively
// into the XLSX workbook (see workbook.go).
//
// =============================================================================

package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/ginjaninja78/receipt-scanner/internal/aggregate"
)

// =============================================================================
// CHART DATA
// =============================================================================

// Bar is one labelled value of a chart.
type Bar struct {
	Label string
	Value float64
}

// QuantityBars converts groups to bars of total quantity.
func QuantityBars(groups []aggregate.Group) []Bar {
	bars := make([]Bar, len(groups))
	for i, g := range groups {
		bars[i] = Bar{Label: g.Name, Value: float64(g.Quantity)}
	}
	return bars
}

// AmountBars converts groups to bars of total sales amount.
func AmountBars(groups []aggregate.Group) []Bar {
	bars := make([]Bar, len(groups))
	for i, g := range groups {
		bars[i] = Bar{Label: g.Name, Value: g.Amount.InexactFloat64()}
	}
	return bars
}

// Options configures the PNG size in pixels.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions returns a 900x600 chart.
func DefaultOptions() Options {
	return Options{Width: 900, Height: 600}
}

func (o Options) normalized() Options {
	if o.Width < 200 {
		o.Width = 200
	}
	if o.Height < 150 {
		o.Height = 150
	}
	return o
}

// =============================================================================
// COLORS
// =============================================================================

var (
	quantityColor = color.RGBA{33, 113, 181, 255}
	amountColor   = color.RGBA{92, 83, 165, 255}

	// set3 is the qualitative palette used for pie slices.
	set3 = []color.RGBA{
		{0x8d, 0xd3, 0xc7, 255}, {0xff, 0xff, 0xb3, 255}, {0xbe, 0xba, 0xda, 255},
		{0xfb, 0x80, 0x72, 255}, {0x80, 0xb1, 0xd3, 255}, {0xfd, 0xb4, 0x62, 255},
		{0xb3, 0xde, 0x69, 255}, {0xfc, 0xcd, 0xe5, 255}, {0xd9, 0xd9, 0xd9, 255},
		{0xbc, 0x80, 0xbd, 255}, {0xcc, 0xeb, 0xc5, 255}, {0xff, 0xed, 0x6f, 255},
	}
)

// =============================================================================
// RENDERING
// =============================================================================

// labelChars is the longest item name printed on an axis or a slice.
const labelChars = 18

// pngDPI makes one vg point one pixel.
const pngDPI = 72

// RenderBar draws a vertical bar chart of bars, in the given order.
func RenderBar(w io.Writer, title string, bars []Bar, opts Options) error {
	opts = opts.normalized()
	if len(bars) == 0 {
		return renderNoData(w, title, opts)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Quantity"
	p.Y.Min = 0

	values, labels := barValues(bars)
	bc, err := plotter.NewBarChart(values, barWidth(opts.Width-80, len(bars)))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bc.Color = quantityColor
	bc.LineStyle.Width = 0
	p.Add(bc)
	p.NominalX(labels...)

	if len(bars) > 6 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = text.XRight
		p.X.Tick.Label.YAlign = text.YCenter
	}

	return writePlot(w, p, opts)
}

// RenderHBar draws a horizontal bar chart of bars, first bar on top.
func RenderHBar(w io.Writer, title string, bars []Bar, opts Options) error {
	opts = opts.normalized()
	if len(bars) == 0 {
		return renderNoData(w, title, opts)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Amount"
	p.X.Min = 0

	// Nominal Y ticks count from the bottom.
	reversed := make([]Bar, len(bars))
	for i, b := range bars {
		reversed[len(bars)-1-i] = b
	}
	values, labels := barValues(reversed)

	bc, err := plotter.NewBarChart(values, barWidth(opts.Height-80, len(bars)))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bc.Horizontal = true
	bc.Color = amountColor
	bc.LineStyle.Width = 0
	p.Add(bc)
	p.NominalY(labels...)

	return writePlot(w, p, opts)
}

// RenderPie draws a pie chart of bars. Each slice is labelled with its name
// and share. Bars without a positive value get no slice.
func RenderPie(w io.Writer, title string, bars []Bar, opts Options) error {
	opts = opts.normalized()

	total := 0.0
	for _, b := range bars {
		total += math.Max(0, b.Value)
	}
	if total == 0 {
		return renderNoData(w, title, opts)
	}

	values := make([]gochart.Value, 0, len(bars))
	for i, b := range bars {
		if b.Value <= 0 {
			continue
		}
		c := set3[i%len(set3)]
		values = append(values, gochart.Value{
			Value: b.Value,
			Label: fmt.Sprintf("%s (%.1f%%)", truncate(b.Label, labelChars), 100*b.Value/total),
			Style: gochart.Style{
				FillColor:   drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A},
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
			},
		})
	}

	pie := gochart.PieChart{
		Title:  title,
		Width:  opts.Width,
		Height: opts.Height,
		Values: values,
	}
	if err := pie.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("failed to render pie chart: %w", err)
	}
	return nil
}

// renderNoData draws an empty titled plot with a "No data" note.
func renderNoData(w io.Writer, title string, opts Options) error {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	note, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0, Y: 0}},
		Labels: []string{"No data"},
	})
	if err != nil {
		return err
	}
	p.Add(note)

	return writePlot(w, p, opts)
}

// writePlot rasterizes p at exactly opts.Width x opts.Height pixels.
func writePlot(w io.Writer, p *plot.Plot, opts Options) error {
	canvas := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.Width), vg.Length(opts.Height)),
		vgimg.UseDPI(pngDPI),
	)
	p.Draw(draw.New(canvas))

	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode chart: %w", err)
	}
	return nil
}

// barValues splits bars into plot values and truncated axis labels.
func barValues(bars []Bar) (plotter.Values, []string) {
	values := make(plotter.Values, len(bars))
	labels := make([]string, len(bars))
	for i, b := range bars {
		values[i] = b.Value
		labels[i] = truncate(b.Label, labelChars)
	}
	return values, labels
}

// barWidth gives n bars 70% of their share of span pixels.
func barWidth(span, n int) vg.Length {
	width := float64(span) / float64(n) * 0.7
	return vg.Length(math.Max(1, width))
}

// truncate shortens s to at most n runes, marking the cut with "~".
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "~"
	}
	return string(r[:n-1]) + "~"
}
