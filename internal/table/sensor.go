package table

import (
	"sort"

	"github.com/i474232898/weather-sensor-dashboard/internal/sensor"
)

// ChangeColumn holds the row-to-row DISTANCE difference.
const ChangeColumn = "change"

// SensorToTable turns the raw history into rows, keeping every upstream key,
// and derives ChangeColumn: null for the first row, otherwise
// DISTANCE[k] - DISTANCE[k-1] (null when either side is not numeric).
func SensorToTable(history sensor.History) Table {
	t := Table{
		Columns: sensorColumns(history),
		Rows:    make([]Row, 0, len(history)),
	}

	var prev *float64
	for i, p := range history {
		row := make(Row, len(p)+1)
		for k, v := range p {
			row[k] = v
		}

		var cur *float64
		if d, ok := p.Number(sensor.DistanceField); ok {
			cur = ptr(d)
			row[sensor.DistanceField] = cur
		}

		var change *float64
		if i > 0 && cur != nil && prev != nil {
			change = ptr(*cur - *prev)
		}
		row[ChangeColumn] = change
		prev = cur

		t.Rows = append(t.Rows, row)
	}
	return t
}

// sensorColumns orders the union of history keys: time first, the rest
// sorted, then change.
func sensorColumns(history sensor.History) []string {
	seen := map[string]struct{}{}
	for _, p := range history {
		for k := range p {
			seen[k] = struct{}{}
		}
	}
	// DISTANCE is always a column, even for an empty history
	seen[sensor.DistanceField] = struct{}{}

	var rest []string
	hasTime := false
	for k := range seen {
		switch k {
		case TimeColumn:
			hasTime = true
		case ChangeColumn:
		default:
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	cols := make([]string, 0, len(rest)+2)
	if hasTime {
		cols = append(cols, TimeColumn)
	}
	cols = append(cols, rest...)
	return append(cols, ChangeColumn)
}
