package table

import (
	"fmt"

	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

// DateColumn keys weather tables.
const DateColumn = "date"

// Hourly rain columns.
const (
	TimeColumn     = "time"
	PrecipMMColumn = "precip_mm"
)

// PrecipFields projects precipitation only.
func PrecipFields() []string {
	return []string{weather.FieldTotalPrecipMM}
}

// FullFields projects every Day field. The slice is a fresh copy.
func FullFields() []string {
	return append([]string(nil), weather.DayFields...)
}

// ValidateFields checks that every name is a projectable Day field.
func ValidateFields(fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("no weather fields selected")
	}
	for _, f := range fields {
		if !weather.IsDayField(f) {
			return fmt.Errorf("unknown weather field %q", f)
		}
	}
	return nil
}

// WeatherToTable emits one row per record: its date plus the selected
// fields of the first forecast day, in cache order.
func WeatherToTable(records []weather.DailyRecord, fields []string) (Table, error) {
	if err := ValidateFields(fields); err != nil {
		return Table{}, err
	}

	t := Table{
		Columns: append([]string{DateColumn}, fields...),
		Rows:    make([]Row, 0, len(records)),
	}
	for _, rec := range records {
		row := Row{DateColumn: rec.Date}
		day, ok := rec.Day()
		for _, f := range fields {
			if !ok {
				row[f] = (*float64)(nil)
				continue
			}
			v, _ := day.Value(f)
			row[f] = ptr(v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// HourlyRainTable lists time and precipitation of the first cached
// record's first forecast day. An empty cache gives an empty table.
func HourlyRainTable(records []weather.DailyRecord) Table {
	t := Table{
		Columns: []string{TimeColumn, PrecipMMColumn},
		Rows:    []Row{},
	}
	if len(records) == 0 {
		return t
	}
	for _, h := range records[0].Hours() {
		t.Rows = append(t.Rows, Row{
			TimeColumn:     h.Time,
			PrecipMMColumn: ptr(h.PrecipMM),
		})
	}
	return t
}
