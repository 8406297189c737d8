package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripmate-ai/tripmate/trip/config"
)

// SearchResult is one hit returned by the web search source.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SearchResponse is the structured success payload of one search.
type SearchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalResults string         `json:"total_results"`
}

// SearchClient queries a customsearch-compatible endpoint.
type SearchClient struct {
	cfg    config.SearchConfig
	client *http.Client
	logger zerolog.Logger
}

// NewSearchClient creates a client with the configured fixed timeout.
func NewSearchClient(cfg config.SearchConfig, logger zerolog.Logger) *SearchClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SearchClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "search_client").Logger(),
	}
}

// Configured reports whether the API key and engine id are present.
func (c *SearchClient) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.EngineID != ""
}

// Search runs a web search and returns up to numResults hits.
func (c *SearchClient) Search(ctx context.Context, query string, numResults int) (*SearchResponse, error) {
	if !c.Configured() {
		c.logger.Warn().Msg("web search API credentials not configured")
		return nil, fmt.Errorf("web search API not configured")
	}
	if numResults <= 0 {
		numResults = 5
	}

	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(numResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("web search API request failed: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("web search API request failed")
		return nil, fmt.Errorf("web search API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Msg("web search API request failed")
		return nil, fmt.Errorf("web search API request failed: status %d", resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"items"`
		SearchInformation struct {
			TotalResults string `json:"totalResults"`
		} `json:"searchInformation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Error().Err(err).Msg("web search API parsing failed")
		return nil, fmt.Errorf("web search data parsing failed: %w", err)
	}

	out := &SearchResponse{TotalResults: payload.SearchInformation.TotalResults}
	for _, item := range payload.Items {
		out.Results = append(out.Results, SearchResult{
			Title:   item.Title,
			Snippet: item.Snippet,
			URL:     item.Link,
		})
	}
	return out, nil
}
