// Package openaigen adapts an OpenAI-compatible chat-completion endpoint
// to the Generator port. Ollama's /v1 endpoint works unchanged.
package openaigen

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/tripmate-ai/tripmate/trip/config"
	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// Client implements genports.Generator over the chat-completion API.
type Client struct {
	api    *openai.Client
	cfg    config.LLMConfig
	logger zerolog.Logger
}

// NewClient creates a generator for the configured endpoint.
func NewClient(cfg config.LLMConfig, logger zerolog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(cfg.Timeout)

	return &Client{
		api:    openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: logger.With().Str("component", "generator").Logger(),
	}
}

// Generate sends the prompt as a single user message and returns the
// completion text. Sampling options fall back to the configured values
// when the caller leaves them zero.
func (c *Client) Generate(ctx context.Context, prompt string, opts genports.Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.cfg.Model
	}
	maxTokens := opts.MaxNewTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxNewTokens
	}
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	topP := opts.TopP
	if topP == 0 {
		topP = c.cfg.TopP
	}

	started := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("model", model).Msg("generation request failed")
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug().
		Str("model", model).
		Int("prompt_length", len(prompt)).
		Int("response_length", len(text)).
		Dur("duration", time.Since(started)).
		Msg("generation completed")
	return text, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

var _ genports.Generator = (*Client)(nil)
