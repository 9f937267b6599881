package sensor

import (
	"context"
	"encoding/json"
	"errors"
)

// DistanceField is the telemetry field requested from the device.
const DistanceField = "DISTANCE"

// ErrBadResponse marks a telemetry response that could not be read.
var ErrBadResponse = errors.New("bad sensor telemetry response")

// Point is one raw history entry as returned by the telemetry API.
type Point map[string]any

// Number returns the numeric value under key, when there is one.
func (p Point) Number(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// History is a device history in API order; order is the time axis.
type History []Point

// HistoryProvider fetches the trailing history of one device.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, deviceID string) (History, error)
}
