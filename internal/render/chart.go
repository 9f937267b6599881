// Package render draws dashboard sections as PNG line charts.
package render

import (
	"fmt"
	"image"
	"io"
	"math"
	"sort"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/i474232898/weather-sensor-dashboard/internal/dashboard"
	"github.com/i474232898/weather-sensor-dashboard/internal/table"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

const (
	Width  = 800
	Height = 480

	marginLeft   = 60
	marginRight  = 20
	marginTop    = 40
	marginBottom = 40
	legendRow    = 16
	yTicks       = 5
)

// LineChart draws one line per metric of the section's long table, colored
// by its palette, and writes the PNG to w. Null values break the line.
func LineChart(w io.Writer, title string, sec dashboard.Section) error {
	dc, err := drawChart(title, sec)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}

func drawChart(title string, sec dashboard.Section) (*gg.Context, error) {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))

	dc := gg.NewContextForRGBA(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(0, 0, Width, Height)
	dc.Fill()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetHexColor("#000000")
	drawStringCentered(dc, title, Width/2, 10)

	keys := keyOrder(sec.Long)
	lo, hi, ok := valueRange(sec.Long)
	if len(keys) == 0 || !ok {
		drawStringCentered(dc, "no data", Width/2, Height/2)
		return dc, nil
	}

	plot := plotArea{
		left:   marginLeft,
		top:    marginTop,
		width:  Width - marginLeft - marginRight,
		height: Height - marginTop - marginBottom,
		lo:     lo,
		hi:     hi,
		n:      len(keys),
	}
	drawAxes(dc, plot, keys)

	series := sec.Long.Series()
	for _, metric := range sec.Long.Metrics {
		dc.SetHexColor(color(sec.Palette, metric))
		dc.SetLineWidth(2)
		drawSeries(dc, plot, keys, series[metric])
	}
	drawLegend(dc, sec.Palette)

	return dc, nil
}

type plotArea struct {
	left, top, width, height float64
	lo, hi                   float64
	n                        int
}

func (p plotArea) x(i int) float64 {
	if p.n == 1 {
		return p.left + p.width/2
	}
	return p.left + float64(i)*p.width/float64(p.n-1)
}

func (p plotArea) y(v float64) float64 {
	return p.top + p.height - (v-p.lo)/(p.hi-p.lo)*p.height
}

func drawAxes(dc *gg.Context, p plotArea, keys []string) {
	dc.SetHexColor("#000000")
	dc.SetLineWidth(1)
	dc.DrawLine(p.left, p.top, p.left, p.top+p.height)
	dc.DrawLine(p.left, p.top+p.height, p.left+p.width, p.top+p.height)
	dc.Stroke()

	for i := 0; i <= yTicks; i++ {
		v := p.lo + (p.hi-p.lo)*float64(i)/yTicks
		label := fmt.Sprintf("%.1f", v)
		w, h := dc.MeasureString(label)
		dc.DrawString(label, p.left-w-6, p.y(v)+h/2)
	}

	drawStringCentered(dc, keys[0], p.x(0), p.top+p.height+6)
	if len(keys) > 1 {
		drawStringCentered(dc, keys[len(keys)-1], p.x(len(keys)-1), p.top+p.height+6)
	}
}

func drawSeries(dc *gg.Context, p plotArea, keys []string, rows []table.LongRow) {
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}

	// draw along the axis, not in row order
	ordered := append([]table.LongRow(nil), rows...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return index[keyString(ordered[i].Key)] < index[keyString(ordered[j].Key)]
	})

	pen := false
	for _, r := range ordered {
		if r.Value == nil {
			if pen {
				dc.Stroke()
			}
			pen = false
			continue
		}
		x, y := p.x(index[keyString(r.Key)]), p.y(*r.Value)
		if pen {
			dc.LineTo(x, y)
		} else {
			dc.MoveTo(x, y)
			pen = true
		}
	}
	if pen {
		dc.Stroke()
	}
}

func drawLegend(dc *gg.Context, s dashboard.Scale) {
	x := float64(marginLeft + 10)
	y := float64(marginTop)
	for i, metric := range s.Domain {
		dc.SetHexColor(s.Range[i])
		dc.DrawRectangle(x, y+3, 10, 10)
		dc.Fill()
		dc.SetHexColor("#000000")
		dc.DrawString(metric, x+14, y+12)
		y += legendRow
	}
}

func color(s dashboard.Scale, metric string) string {
	for i, m := range s.Domain {
		if m == metric && i < len(s.Range) {
			return s.Range[i]
		}
	}
	return "#808080"
}

// keyLayouts are the time formats the x axis understands.
var keyLayouts = []string{
	weather.DateLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
}

// keyOrder lists distinct keys, oldest first when every key is a time.
// Anything else keeps first-seen order.
func keyOrder(long table.LongTable) []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, r := range long.Rows {
		k := keyString(r.Key)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	times := make(map[string]time.Time, len(keys))
	for _, k := range keys {
		ts, ok := parseKeyTime(k)
		if !ok {
			return keys
		}
		times[k] = ts
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return times[keys[i]].Before(times[keys[j]])
	})
	return keys
}

func parseKeyTime(k string) (time.Time, bool) {
	for _, layout := range keyLayouts {
		if ts, err := time.Parse(layout, k); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// valueRange returns the min and max over all non-null values, widened by
// one on each side when they coincide.
func valueRange(long table.LongTable) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range long.Rows {
		if r.Value == nil {
			continue
		}
		lo = math.Min(lo, *r.Value)
		hi = math.Max(hi, *r.Value)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return lo, hi, true
}

func keyString(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case *float64:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%g", *v)
	default:
		return fmt.Sprint(v)
	}
}

func drawStringCentered(dc *gg.Context, text string, x, y float64) {
	w, h := dc.MeasureString(text)
	dc.DrawString(text, x-w/2, y+h)
}
