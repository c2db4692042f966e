package render

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"chartkit/internal/chart"
	"chartkit/internal/domain"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"
)

var barColor = color.RGBA{R: 0x46, G: 0x82, B: 0xb4, A: 0xff}

// SVGSink draws a ChartSpec with go-gg. Bars are drawn as stems from zero
// with a point on top; lines as one path per visible series.
type SVGSink struct {
	w    io.Writer
	size Size
}

func NewSVGSink(w io.Writer, size Size) *SVGSink {
	if size.Width <= 0 || size.Height <= 0 {
		size = DefaultSize
	}
	return &SVGSink{w: w, size: size}
}

func (s *SVGSink) Render(ctx context.Context, spec *domain.ChartSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		plot *gg.Plot
		err  error
	)
	switch spec.Kind {
	case domain.ChartBar:
		plot, err = barPlot(spec)
	case domain.ChartLines:
		plot, err = linesPlot(spec)
	default:
		return fmt.Errorf("cannot draw chart kind %q", spec.Kind)
	}
	if err != nil {
		return Placeholder(s.w, s.size, err.Error())
	}
	if spec.Title != "" {
		plot.Add(gg.Title(spec.Title))
	}
	return plot.WriteSVG(s.w, s.size.Width, s.size.Height)
}

// errNothingToDraw makes Render fall back to a placeholder.
var errNothingToDraw = fmt.Errorf("nothing to draw")

func barPlot(spec *domain.ChartSpec) (*gg.Plot, error) {
	if len(spec.Series) == 0 || len(spec.Series[0].Points) == 0 {
		return nil, errNothingToDraw
	}

	// Categories map to their index in the category domain so the axis
	// keeps first-seen order; the ordinal scale would sort them.
	index := make(map[string]int, len(spec.CategoryDomain))
	for i, c := range spec.CategoryDomain {
		index[c] = i
	}

	value := spec.Series[0].Name
	var (
		xs, bars, topX []int
		ys, topY       []float64
	)
	for i, p := range spec.Series[0].Points {
		x := index[p.Category]
		xs = append(xs, x, x)
		ys = append(ys, 0, p.Y)
		bars = append(bars, i, i)
		topX = append(topX, x)
		topY = append(topY, p.Y)
	}
	tab := table.NewBuilder(nil).
		Add("category", xs).
		Add(value, ys).
		Add("bar", bars).
		Done()

	plot := gg.NewPlot(tab)

	x := gg.NewLinearScaler()
	x.SetMin(-0.5).SetMax(float64(len(spec.CategoryDomain)) - 0.5)
	x.SetFormatter(func(v float64) string {
		i := int(math.Round(v))
		if i < 0 || i >= len(spec.CategoryDomain) {
			return ""
		}
		return spec.CategoryDomain[i]
	})
	plot.SetScale("x", x)
	plot.SetScale("y", valueScale(spec))
	plot.Add(gg.AxisLabel("x", spec.CategoryField))

	plot.GroupBy("bar")
	plot.Add(gg.LayerPaths{X: "category", Y: value, Color: plot.Const(barColor)})

	plot.SetData(table.NewBuilder(nil).Add("category", topX).Add(value, topY).Done())
	plot.Add(gg.LayerPoints{X: "category", Y: value, Color: plot.Const(barColor)})
	return plot, nil
}

func linesPlot(spec *domain.ChartSpec) (*gg.Plot, error) {
	visible := spec.VisibleSeries()
	if len(visible) == 0 || spec.TimeDomain == nil {
		return nil, errNothingToDraw
	}

	var (
		xs     []float64
		ys     []float64
		series []string
	)
	for _, s := range visible {
		for _, p := range s.Points {
			y := p.Y
			if spec.Scale == domain.ScaleLog {
				y = math.Log10(y)
			}
			xs = append(xs, epochDays(p.X))
			ys = append(ys, y)
			series = append(series, s.Name)
		}
	}
	if len(xs) == 0 {
		return nil, errNothingToDraw
	}

	tab := table.NewBuilder(nil).
		Add("date", xs).
		Add("value", ys).
		Add("series", series).
		Done()
	plot := gg.NewPlot(tab)

	labels := chart.NewLabeler(spec.Locale)
	layout := dateLayout(*spec.TimeDomain)
	x := gg.NewLinearScaler()
	x.SetMin(epochDays(spec.TimeDomain.Min)).SetMax(epochDays(spec.TimeDomain.Max))
	x.SetFormatter(func(v float64) string {
		t := fromEpochDays(v)
		for _, tick := range spec.TimeTicks {
			if math.Abs(epochDays(tick.At)-v) < 0.5 {
				return tick.Label
			}
		}
		return labels.Date(t, layout)
	})
	plot.SetScale("x", x)
	plot.SetScale("y", valueScale(spec))

	plot.Add(gg.LayerLines{X: "date", Y: "value", Color: "series"})
	return plot, nil
}

// valueScale pins the y axis to the projected domain. Log domains are
// drawn in log10 space. Labels reuse the spec's ticks where go-gg picks
// the same value and are otherwise formatted in the spec's locale.
func valueScale(spec *domain.ChartSpec) gg.ContinuousScaler {
	labels := chart.NewLabeler(spec.Locale)
	label := func(v, step float64) string {
		for _, tick := range spec.ValueTicks {
			if math.Abs(tick.Value-v) <= 1e-9*math.Max(1, math.Abs(v)) {
				return tick.Label
			}
		}
		return labels.Step(v, step)
	}

	y := gg.NewLinearScaler()
	d := spec.ValueDomain
	if spec.Scale == domain.ScaleLog {
		y.SetMin(math.Log10(d.Min)).SetMax(math.Log10(d.Max))
		y.SetFormatter(func(v float64) string {
			v = math.Pow(10, v)
			return label(v, v)
		})
		return y
	}
	y.SetMin(d.Min).SetMax(d.Max)
	y.SetFormatter(func(v float64) string {
		return label(v, (d.Max-d.Min)/10)
	})
	return y
}

// dateLayout picks a label layout for go-gg's evenly spaced date ticks.
func dateLayout(d domain.TimeDomain) string {
	switch span := d.Max.Sub(d.Min); {
	case span <= 62*24*time.Hour:
		return "Jan 2"
	case span <= 3*366*24*time.Hour:
		return "Jan 2006"
	default:
		return "2006"
	}
}

func epochDays(t time.Time) float64 {
	return float64(t.Unix()) / 86400
}

func fromEpochDays(v float64) time.Time {
	return time.Unix(int64(v*86400), 0).UTC()
}
