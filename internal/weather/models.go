package weather

import (
	"strconv"
)

// DateLayout is the calendar-date format used as the cache key.
const DateLayout = "2006-01-02"

// Day field names, in their default projection order.
const (
	FieldMaxTempC      = "maxtemp_c"
	FieldMinTempC      = "mintemp_c"
	FieldAvgTempC      = "avgtemp_c"
	FieldTotalPrecipMM = "totalprecip_mm"
	FieldAvgHumidity   = "avghumidity"
	FieldUV            = "uv"
)

// DayFields lists every projectable Day field.
var DayFields = []string{
	FieldMaxTempC,
	FieldMinTempC,
	FieldAvgTempC,
	FieldTotalPrecipMM,
	FieldAvgHumidity,
	FieldUV,
}

// Coordinate is the fixed geographic point weather history is requested for.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Query renders the coordinate the way WeatherAPI expects it in "q".
func (c Coordinate) Query() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// Location is the descriptive upstream location block. It is stored as-is
// and never interpreted downstream.
type Location struct {
	Name           string  `json:"name"`
	Region         string  `json:"region"`
	Country        string  `json:"country"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	TzID           string  `json:"tz_id,omitempty"`
	LocaltimeEpoch int64   `json:"localtime_epoch,omitempty"`
	Localtime      string  `json:"localtime,omitempty"`
}

// Day is the fixed-shape daily aggregate kept from the upstream payload.
type Day struct {
	MaxTempC      float64 `json:"maxtemp_c"`
	MinTempC      float64 `json:"mintemp_c"`
	AvgTempC      float64 `json:"avgtemp_c"`
	TotalPrecipMM float64 `json:"totalprecip_mm"`
	AvgHumidity   float64 `json:"avghumidity"`
	UV            float64 `json:"uv"`
}

// Value returns the field with the given JSON name.
func (d Day) Value(field string) (float64, bool) {
	switch field {
	case FieldMaxTempC:
		return d.MaxTempC, true
	case FieldMinTempC:
		return d.MinTempC, true
	case FieldAvgTempC:
		return d.AvgTempC, true
	case FieldTotalPrecipMM:
		return d.TotalPrecipMM, true
	case FieldAvgHumidity:
		return d.AvgHumidity, true
	case FieldUV:
		return d.UV, true
	default:
		return 0, false
	}
}

// IsDayField reports whether field names a Day value.
func IsDayField(field string) bool {
	_, ok := Day{}.Value(field)
	return ok
}

// HourEntry is one hourly sample of a forecast day.
type HourEntry struct {
	Time     string  `json:"time"`
	PrecipMM float64 `json:"precip_mm"`
}

// ForecastDay mirrors the upstream forecast.forecastday[] element.
type ForecastDay struct {
	Date string      `json:"date"`
	Day  Day         `json:"day"`
	Hour []HourEntry `json:"hour,omitempty"`
}

// Forecast wraps the forecast days of a record.
type Forecast struct {
	ForecastDay []ForecastDay `json:"forecastday"`
}

// DailyRecord is one cached day of weather history. Date is unique within
// the cache.
type DailyRecord struct {
	Date     string   `json:"date"`
	Location Location `json:"location"`
	Forecast Forecast `json:"forecast"`
}

// Day returns the aggregate of the first forecast day.
func (r DailyRecord) Day() (Day, bool) {
	if len(r.Forecast.ForecastDay) == 0 {
		return Day{}, false
	}
	return r.Forecast.ForecastDay[0].Day, true
}

// Hours returns the hourly entries of the first forecast day.
func (r DailyRecord) Hours() []HourEntry {
	if len(r.Forecast.ForecastDay) == 0 {
		return nil
	}
	return r.Forecast.ForecastDay[0].Hour
}

// NewDailyRecord builds a record holding a single forecast day.
func NewDailyRecord(date string, loc Location, forecastDate string, day Day, hours []HourEntry) DailyRecord {
	return DailyRecord{
		Date:     date,
		Location: loc,
		Forecast: Forecast{
			ForecastDay: []ForecastDay{{
				Date: forecastDate,
				Day:  day,
				Hour: hours,
			}},
		},
	}
}
