// Package table flattens cached weather records and sensor history into
// row-oriented tables and their long-form (melted) variants for charting.
package table

import (
	"fmt"
)

// Value column names of the long-form table.
const (
	MetricColumn = "type"
	ValueColumn  = "value"
)

// Row is one table row keyed by column name. Numeric cells are *float64 so
// missing values serialize as null.
type Row map[string]any

// Table is a wide table: one column per metric.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// HasColumn reports whether the table carries column name.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns the cells of one column in row order.
func (t Table) Column(name string) []any {
	out := make([]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r[name])
	}
	return out
}

// LongRow is one (key, metric, value) entry of a melted table.
type LongRow struct {
	Key    any      `json:"key"`
	Metric string   `json:"type"`
	Value  *float64 `json:"value"`
}

// LongTable is the long form of a Table, one row per key and metric.
type LongTable struct {
	KeyColumn string    `json:"keyColumn"`
	Metrics   []string  `json:"metrics"`
	Rows      []LongRow `json:"rows"`
}

// Melt reshapes t into long form around idColumn. Rows are emitted column
// by column: every row of the first value column, then the next.
// With no valueColumns, every column except idColumn is melted.
func Melt(t Table, idColumn string, valueColumns ...string) (LongTable, error) {
	if !t.HasColumn(idColumn) {
		return LongTable{}, fmt.Errorf("melt: unknown id column %q", idColumn)
	}
	if len(valueColumns) == 0 {
		for _, c := range t.Columns {
			if c != idColumn {
				valueColumns = append(valueColumns, c)
			}
		}
	}
	for _, c := range valueColumns {
		if !t.HasColumn(c) {
			return LongTable{}, fmt.Errorf("melt: unknown value column %q", c)
		}
	}

	long := LongTable{
		KeyColumn: idColumn,
		Metrics:   append([]string(nil), valueColumns...),
		Rows:      make([]LongRow, 0, len(t.Rows)*len(valueColumns)),
	}
	for _, metric := range valueColumns {
		for _, r := range t.Rows {
			long.Rows = append(long.Rows, LongRow{
				Key:    r[idColumn],
				Metric: metric,
				Value:  numeric(r[metric]),
			})
		}
	}
	return long, nil
}

// Series groups the long rows by metric, keeping row order.
func (l LongTable) Series() map[string][]LongRow {
	out := make(map[string][]LongRow, len(l.Metrics))
	for _, r := range l.Rows {
		out[r.Metric] = append(out[r.Metric], r)
	}
	return out
}

func numeric(v any) *float64 {
	switch n := v.(type) {
	case *float64:
		return n
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	default:
		return nil
	}
}

func ptr(f float64) *float64 {
	return &f
}
