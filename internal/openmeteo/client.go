// Package openmeteo fetches hourly weather and sea conditions from the
// Open-Meteo forecast and marine APIs.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ngmaloney/strike-log/internal/models"
)

const (
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultMarineURL   = "https://marine-api.open-meteo.com/v1/marine"

	forecastFields = "wind_speed_10m,wind_direction_10m,temperature_2m,pressure_msl,cloud_cover"
	marineFields   = "wave_height,sea_surface_temperature"
)

// ErrNoData is returned when the forecast response has no hourly rows.
var ErrNoData = errors.New("no hourly data in response")

// WeatherClient defines the interface for fetching one hour of conditions
type WeatherClient interface {
	// Observation returns the conditions at lat/lon for the hour nearest at
	Observation(ctx context.Context, lat, lon float64, at time.Time) (*models.WeatherObservation, error)
}

// Client implements WeatherClient against Open-Meteo
type Client struct {
	forecastURL string
	marineURL   string
	httpClient  *http.Client
}

// NewClient creates a new Open-Meteo client. Empty URLs and a zero timeout
// fall back to the public endpoints and 30 seconds.
func NewClient(forecastURL, marineURL string, timeout time.Duration) *Client {
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}
	if marineURL == "" {
		marineURL = DefaultMarineURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		forecastURL: forecastURL,
		marineURL:   marineURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// hourlyResponse is the shape shared by both APIs. Values are pointers
// because Open-Meteo returns null for hours it has no data for.
type hourlyResponse struct {
	Hourly map[string]json.RawMessage `json:"hourly"`
}

type series struct {
	times  []int64
	values map[string][]*float64
}

// Observation retrieves forecast and marine data concurrently. The marine
// API only covers the sea, so a marine failure leaves the wave and water
// temperature fields nil instead of failing the whole call.
func (c *Client) Observation(ctx context.Context, lat, lon float64, at time.Time) (*models.WeatherObservation, error) {
	type result struct {
		data *series
		err  error
	}

	forecastChan := make(chan result, 1)
	marineChan := make(chan result, 1)

	go func() {
		s, err := c.fetchHourly(ctx, c.forecastURL, lat, lon, forecastFields)
		forecastChan <- result{s, err}
	}()
	go func() {
		s, err := c.fetchHourly(ctx, c.marineURL, lat, lon, marineFields)
		marineChan <- result{s, err}
	}()

	res := <-forecastChan
	if res.err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", res.err)
	}
	forecast := res.data

	i, ok := nearestHour(forecast.times, at)
	if !ok {
		return nil, ErrNoData
	}

	obs := &models.WeatherObservation{
		WindSpeedKmh:     forecast.at("wind_speed_10m", i),
		WindDirectionDeg: forecast.at("wind_direction_10m", i),
		AirTempC:         forecast.at("temperature_2m", i),
		PressureHPa:      forecast.at("pressure_msl", i),
		CloudCoverPct:    forecast.at("cloud_cover", i),
		ObservedAt:       time.Unix(forecast.times[i], 0).UTC(),
	}

	res = <-marineChan
	if res.err == nil {
		if j, ok := nearestHour(res.data.times, at); ok {
			obs.WaveHeightM = res.data.at("wave_height", j)
			obs.WaterTempC = res.data.at("sea_surface_temperature", j)
		}
	}

	return obs, nil
}

func (c *Client) fetchHourly(ctx context.Context, baseURL string, lat, lon float64, fields string) (*series, error) {
	params := url.Values{}
	params.Add("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Add("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Add("hourly", fields)
	params.Add("timeformat", "unixtime")
	params.Add("timezone", "GMT")
	params.Add("past_days", "1")
	params.Add("forecast_days", "2")

	requestURL := fmt.Sprintf("%s?%s", baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var raw hourlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	s := &series{values: make(map[string][]*float64)}
	if t, ok := raw.Hourly["time"]; ok {
		if err := json.Unmarshal(t, &s.times); err != nil {
			return nil, fmt.Errorf("failed to decode hourly times: %w", err)
		}
	}
	for name, msg := range raw.Hourly {
		if name == "time" {
			continue
		}
		var vals []*float64
		if err := json.Unmarshal(msg, &vals); err != nil {
			// Skip fields we cannot read
			continue
		}
		s.values[name] = vals
	}
	return s, nil
}

func (s *series) at(field string, i int) *float64 {
	vals := s.values[field]
	if i < 0 || i >= len(vals) {
		return nil
	}
	return vals[i]
}

// nearestHour returns the index of the timestamp closest to at.
func nearestHour(times []int64, at time.Time) (int, bool) {
	if len(times) == 0 {
		return 0, false
	}
	target := at.Unix()
	best := 0
	bestDiff := abs(times[0] - target)
	for i, ts := range times[1:] {
		if d := abs(ts - target); d < bestDiff {
			best, bestDiff = i+1, d
		}
	}
	return best, true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
