package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// stubGenerator returns a canned response or error.
type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, _ genports.Options) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.response, g.err
}

var testCategories = []string{"destination", "attractions", "packing", "other"}

func newJSONClassifier(t *testing.T, gen genports.Generator) *JSONClassifier {
	t.Helper()
	c, err := NewJSONClassifier(gen, testCategories, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewJSONClassifierRequiresCategories(t *testing.T) {
	_, err := NewJSONClassifier(&stubGenerator{}, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestJSONClassifyParsesValidResponse(t *testing.T) {
	gen := &stubGenerator{response: `Sure, here you go:
{"category": "attractions", "confidence": 0.9, "tags": {"needs_weather_api": false, "needs_web_search": true, "location": "Paris, France", "is_question": true, "is_comparison": false, "is_recommendation_request": true}}`}
	c := newJSONClassifier(t, gen)

	result, err := c.Classify(context.Background(), "what should I see in Paris", genports.ChatContext{})
	require.NoError(t, err)

	assert.Equal(t, "attractions", result.Category)
	assert.Equal(t, 0.9, result.Confidence)
	assert.True(t, result.Tags.NeedsWebSearch)
	assert.Equal(t, "paris, france", result.Tags.Location)
	assert.True(t, result.Tags.IsQuestion)
}

func TestJSONClassifyNullLocation(t *testing.T) {
	gen := &stubGenerator{response: `{"category": "other", "confidence": 0.6, "tags": {"needs_weather_api": false, "needs_web_search": false, "location": null, "is_question": false, "is_comparison": false, "is_recommendation_request": false}}`}
	c := newJSONClassifier(t, gen)

	result, err := c.Classify(context.Background(), "hello", genports.ChatContext{})
	require.NoError(t, err)
	assert.Equal(t, "", result.Tags.Location)
}

func TestJSONClassifyFallbacks(t *testing.T) {
	cases := []struct {
		name string
		gen  *stubGenerator
	}{
		{"backend error", &stubGenerator{err: errors.New("connection refused")}},
		{"no json object", &stubGenerator{response: "I am not sure what you mean."}},
		{"malformed json", &stubGenerator{response: `{"category": "attractions",`}},
		{"unknown category", &stubGenerator{response: `{"category": "weather", "confidence": 0.9, "tags": {}}`}},
		{"missing required field", &stubGenerator{response: `{"category": "packing", "tags": {}}`}},
		{"extra field", &stubGenerator{response: `{"category": "packing", "confidence": 0.9, "tags": {}, "reasoning": "because"}`}},
		{"confidence out of range", &stubGenerator{response: `{"category": "packing", "confidence": 1.5, "tags": {}}`}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newJSONClassifier(t, tc.gen)
			result, err := c.Classify(context.Background(), "pack for tokyo", genports.ChatContext{})
			require.NoError(t, err)
			assert.Equal(t, Fallback(), result)
		})
	}
}

func TestJSONClassifyPromptCarriesContext(t *testing.T) {
	gen := &stubGenerator{response: `{"category": "other", "confidence": 0.5, "tags": {}}`}
	c := newJSONClassifier(t, gen)

	var chat genports.ChatContext
	chat.AddMessage(genports.RoleSystem, "You are a helpful travel assistant.")
	chat.AddMessage(genports.RoleAssistant, "Lisbon is lovely in May.")
	chat.AddMessage(genports.RoleUser, "and in June?")

	_, err := c.Classify(context.Background(), "and in June?", chat)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "and in June?")
	assert.Contains(t, gen.prompts[0], "Lisbon is lovely in May.")
}
