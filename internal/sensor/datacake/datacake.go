// Package datacake reads device history from the Datacake GraphQL API.
package datacake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-sensor-dashboard/internal/common"
	"github.com/i474232898/weather-sensor-dashboard/internal/sensor"
)

const (
	// DefaultEndpoint is the public Datacake GraphQL endpoint.
	DefaultEndpoint = "https://api.datacake.co/graphql/"

	timeRangeLayout = "2006-01-02T15:04"
	historyWindow   = 7 * 24 * time.Hour
	resolution      = "raw"
)

// Client implements sensor.HistoryProvider.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
	clock    clock.Clock
	circuit  *gobreaker.CircuitBreaker
}

func NewClient(client *http.Client, apiKey, endpoint string, clk clock.Clock) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   client,
		clock:    clk,
		circuit:  common.NewBreaker("datacake"),
	}
}

// Window returns the history range ending now, at minute resolution.
func (c *Client) Window() (start, end time.Time) {
	end = c.clock.Now().Truncate(time.Minute)
	return end.Add(-historyWindow), end
}

// FetchHistory queries DISTANCE for the last seven days and returns the
// decoded history list unchanged.
func (c *Client) FetchHistory(ctx context.Context, deviceID string) (sensor.History, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: datacake api key is not configured", sensor.ErrBadResponse)
	}
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is not configured", sensor.ErrBadResponse)
	}

	start, end := c.Window()
	body, err := json.Marshal(map[string]string{
		"query": historyQuery(deviceID, start, end),
	})
	if err != nil {
		return nil, err
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Token "+c.apiKey)
		return req, nil
	}

	resp, err := common.Do(ctx, c.client, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sensor.ErrBadResponse, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Data *struct {
			Device *struct {
				History *string `json:"history"`
			} `json:"device"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", sensor.ErrBadResponse, err)
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("%w: %s", sensor.ErrBadResponse, strings.Join(msgs, "; "))
	}
	if envelope.Data == nil || envelope.Data.Device == nil || envelope.Data.Device.History == nil {
		return nil, fmt.Errorf("%w: missing data.device.history", sensor.ErrBadResponse)
	}

	// history is itself a JSON document encoded as a string
	var history sensor.History
	if err := json.Unmarshal([]byte(*envelope.Data.Device.History), &history); err != nil {
		return nil, fmt.Errorf("%w: decode history: %v", sensor.ErrBadResponse, err)
	}
	if history == nil {
		history = sensor.History{}
	}
	return history, nil
}

func historyQuery(deviceID string, start, end time.Time) string {
	return fmt.Sprintf(`
query {
    device(deviceId: %q) {
        history(fields: [%q], timerangestart: %q, timerangeend: %q, resolution: %q)
    }
}
`, deviceID, sensor.DistanceField, start.Format(timeRangeLayout), end.Format(timeRangeLayout), resolution)
}
