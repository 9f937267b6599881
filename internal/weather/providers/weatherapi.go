package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-sensor-dashboard/internal/common"
	"github.com/i474232898/weather-sensor-dashboard/internal/weather"
)

const weatherAPIHistoryURL = "https://api.weatherapi.com/v1/history.json"

// WeatherAPIProvider implements weather.HistoryProvider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name          string
	apiKey        string
	baseURL       string
	coord         weather.Coordinate
	includeHourly bool
	client        *http.Client
	circuit       *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, coord weather.Coordinate, includeHourly bool) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:          "weatherapi",
		apiKey:        apiKey,
		baseURL:       weatherAPIHistoryURL,
		coord:         coord,
		includeHourly: includeHourly,
		client:        client,
		circuit:       common.NewBreaker("weatherapi"),
	}
}

// WithBaseURL points the provider at another endpoint (tests, proxies).
func (p *WeatherAPIProvider) WithBaseURL(u string) *WeatherAPIProvider {
	p.baseURL = u
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// FetchForDate requests the history of one date and keeps only the fields
// of weather.DailyRecord.
func (p *WeatherAPIProvider) FetchForDate(ctx context.Context, date string) (weather.DailyRecord, error) {
	if p.apiKey == "" {
		return weather.DailyRecord{}, fmt.Errorf("%w: weatherapi api key is not configured", weather.ErrUpstreamUnavailable)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", p.coord.Query())
		values.Set("dt", date)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := common.Do(ctx, p.client, p.circuit, buildRequest)
	if err != nil {
		return weather.DailyRecord{}, fmt.Errorf("%w: %w", weather.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var payload historyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.DailyRecord{}, fmt.Errorf("%w: decode: %v", weather.ErrMalformedPayload, err)
	}

	return payload.record(date, p.includeHourly)
}

// historyPayload is the subset of history.json we read. Pointers tell a
// missing key apart from a zero value.
type historyPayload struct {
	Location *weather.Location `json:"location"`
	Forecast *struct {
		ForecastDay []struct {
			Date *string `json:"date"`
			Day  *struct {
				MaxTempC      *float64 `json:"maxtemp_c"`
				MinTempC      *float64 `json:"mintemp_c"`
				AvgTempC      *float64 `json:"avgtemp_c"`
				TotalPrecipMM *float64 `json:"totalprecip_mm"`
				AvgHumidity   *float64 `json:"avghumidity"`
				UV            *float64 `json:"uv"`
			} `json:"day"`
			Hour *[]struct {
				Time     *string  `json:"time"`
				PrecipMM *float64 `json:"precip_mm"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p historyPayload) record(date string, includeHourly bool) (weather.DailyRecord, error) {
	missing := func(key string) (weather.DailyRecord, error) {
		return weather.DailyRecord{}, fmt.Errorf("%w: missing key %q", weather.ErrMalformedPayload, key)
	}

	if p.Location == nil {
		return missing("location")
	}
	if p.Forecast == nil {
		return missing("forecast")
	}
	if len(p.Forecast.ForecastDay) == 0 {
		return missing("forecast.forecastday[0]")
	}
	fd := p.Forecast.ForecastDay[0]
	if fd.Date == nil {
		return missing("forecast.forecastday[0].date")
	}
	if fd.Day == nil {
		return missing("forecast.forecastday[0].day")
	}

	required := []struct {
		key string
		val *float64
	}{
		{weather.FieldMaxTempC, fd.Day.MaxTempC},
		{weather.FieldMinTempC, fd.Day.MinTempC},
		{weather.FieldAvgTempC, fd.Day.AvgTempC},
		{weather.FieldTotalPrecipMM, fd.Day.TotalPrecipMM},
		{weather.FieldAvgHumidity, fd.Day.AvgHumidity},
		{weather.FieldUV, fd.Day.UV},
	}
	for _, r := range required {
		if r.val == nil {
			return missing("forecast.forecastday[0].day." + r.key)
		}
	}

	day := weather.Day{
		MaxTempC:      *fd.Day.MaxTempC,
		MinTempC:      *fd.Day.MinTempC,
		AvgTempC:      *fd.Day.AvgTempC,
		TotalPrecipMM: *fd.Day.TotalPrecipMM,
		AvgHumidity:   *fd.Day.AvgHumidity,
		UV:            *fd.Day.UV,
	}

	var hours []weather.HourEntry
	if includeHourly {
		if fd.Hour == nil {
			return missing("forecast.forecastday[0].hour")
		}
		hours = make([]weather.HourEntry, 0, len(*fd.Hour))
		for i, h := range *fd.Hour {
			if h.Time == nil {
				return missing(fmt.Sprintf("forecast.forecastday[0].hour[%d].time", i))
			}
			if h.PrecipMM == nil {
				return missing(fmt.Sprintf("forecast.forecastday[0].hour[%d].precip_mm", i))
			}
			hours = append(hours, weather.HourEntry{Time: *h.Time, PrecipMM: *h.PrecipMM})
		}
	}

	return weather.NewDailyRecord(date, *p.Location, *fd.Date, day, hours), nil
}
