package dashboard

import (
	"github.com/i474232898/weather-sensor-dashboard/internal/sensor"
	"github.com/i474232898/weather-sensor-dashboard/internal/table"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// fallbackColor is used for metrics the palette does not name.
const fallbackColor = "#808080"

// Palette maps a metric name to a hex color.
type Palette map[string]string

// DefaultPalette colors every metric the dashboard charts.
func DefaultPalette() Palette {
	return Palette{
		weather.FieldMaxTempC:      "#ff0000",
		weather.FieldMinTempC:      "#0000ff",
		weather.FieldAvgTempC:      "#008000",
		weather.FieldTotalPrecipMM: "#0000ff",
		weather.FieldAvgHumidity:   "#800080",
		weather.FieldUV:            "#ffa500",
		table.PrecipMMColumn:       "#1e90ff",
		sensor.DistanceField:       "#2f4f4f",
		table.ChangeColumn:         "#ff8c00",
	}
}

// Merge returns p overlaid with other.
func (p Palette) Merge(other Palette) Palette {
	out := make(Palette, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Color returns the color for metric.
func (p Palette) Color(metric string) string {
	if c, ok := p[metric]; ok {
		return c
	}
	return fallbackColor
}

// Scale is a color scale in chart terms: domain[i] is drawn in range[i].
type Scale struct {
	Domain []string `json:"domain"`
	Range  []string `json:"range"`
}

// Scale restricts the palette to metrics, keeping their order.
func (p Palette) Scale(metrics []string) Scale {
	s := Scale{
		Domain: append([]string(nil), metrics...),
		Range:  make([]string, 0, len(metrics)),
	}
	for _, m := range metrics {
		s.Range = append(s.Range, p.Color(m))
	}
	return s
}

