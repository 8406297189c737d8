// Package tools holds the outbound HTTP clients for the weather and
// web-search data sources. Payloads are pass-through: the pipeline
// folds either the structured result or the error into prompt text
// without further validation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripmate-ai/tripmate/trip/config"
)

// WeatherReport is the structured success payload of one lookup.
type WeatherReport struct {
	Temperature float64 `json:"temperature"`
	Description string  `json:"description"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Location    string  `json:"location"`
	Country     string  `json:"country"`
}

// WeatherClient fetches current conditions from an
// openweathermap-compatible endpoint.
type WeatherClient struct {
	cfg    config.WeatherConfig
	client *http.Client
	logger zerolog.Logger
}

// NewWeatherClient creates a client with the configured fixed timeout.
func NewWeatherClient(cfg config.WeatherConfig, logger zerolog.Logger) *WeatherClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WeatherClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "weather_client").Logger(),
	}
}

// Configured reports whether an API key is present. Unconfigured
// clients fail without issuing requests.
func (c *WeatherClient) Configured() bool {
	return c.cfg.APIKey != ""
}

// Get fetches current weather for location.
func (c *WeatherClient) Get(ctx context.Context, location string) (*WeatherReport, error) {
	if !c.Configured() {
		c.logger.Warn().Msg("weather API key not configured")
		return nil, fmt.Errorf("weather API not configured")
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("appid", c.cfg.APIKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather API request failed: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("weather API request failed")
		return nil, fmt.Errorf("weather API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Msg("weather API request failed")
		return nil, fmt.Errorf("weather API request failed: status %d", resp.StatusCode)
	}

	var payload struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Name string `json:"name"`
		Sys  struct {
			Country string `json:"country"`
		} `json:"sys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Error().Err(err).Msg("weather API parsing failed")
		return nil, fmt.Errorf("weather data parsing failed: %w", err)
	}

	report := &WeatherReport{
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		Location:    payload.Name,
		Country:     payload.Sys.Country,
	}
	if len(payload.Weather) > 0 {
		report.Description = payload.Weather[0].Description
	}
	return report, nil
}
