package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// jsonObjectPattern grabs the first JSON object in a response; models
// routinely wrap the object in prose or code fences.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// JSONClassifier asks the backend for a single JSON object and parses
// it strictly against a schema. Any deviation falls back.
type JSONClassifier struct {
	generator  genports.Generator
	categories []string
	schema     *gojsonschema.Schema
	logger     zerolog.Logger
}

// NewJSONClassifier builds a classifier restricted to categories.
// The category list must be non-empty; the catch-all is appended when
// missing so the fallback always validates.
func NewJSONClassifier(generator genports.Generator, categories []string, logger zerolog.Logger) (*JSONClassifier, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories supplied")
	}
	hasOther := false
	for _, c := range categories {
		if c == CategoryOther {
			hasOther = true
		}
	}
	if !hasOther {
		categories = append(categories, CategoryOther)
	}

	schema, err := compileClassificationSchema(categories)
	if err != nil {
		return nil, fmt.Errorf("compile classification schema: %w", err)
	}

	return &JSONClassifier{
		generator:  generator,
		categories: categories,
		schema:     schema,
		logger:     logger.With().Str("component", "json_classifier").Logger(),
	}, nil
}

// Classify runs one backend call and parses the response. The returned
// error is always nil; failures collapse into Fallback.
func (c *JSONClassifier) Classify(ctx context.Context, userInput string, chat genports.ChatContext) (Classification, error) {
	prompt := c.buildPrompt(userInput, chat)

	response, err := c.generator.Generate(ctx, prompt, genports.Options{Temperature: 0.1})
	if err != nil {
		c.logger.Warn().Err(err).Msg("classification backend call failed, using fallback")
		return Fallback(), nil
	}

	result, err := c.parse(response)
	if err != nil {
		c.logger.Warn().Err(err).Str("response", truncate(response, 120)).Msg("classification parse failed, using fallback")
		return Fallback(), nil
	}
	return result, nil
}

func (c *JSONClassifier) parse(response string) (Classification, error) {
	raw := jsonObjectPattern.FindString(strings.TrimSpace(response))
	if raw == "" {
		return Classification{}, fmt.Errorf("no JSON object in response")
	}

	validation, err := c.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return Classification{}, fmt.Errorf("schema validation errored: %w", err)
	}
	if !validation.Valid() {
		return Classification{}, fmt.Errorf("response does not match classification schema: %v", validation.Errors())
	}

	var wire struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
		Tags       struct {
			NeedsWeatherAPI         bool    `json:"needs_weather_api"`
			NeedsWebSearch          bool    `json:"needs_web_search"`
			Location                *string `json:"location"`
			IsQuestion              bool    `json:"is_question"`
			IsComparison            bool    `json:"is_comparison"`
			IsRecommendationRequest bool    `json:"is_recommendation_request"`
		} `json:"tags"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Classification{}, fmt.Errorf("decode classification: %w", err)
	}

	location := ""
	if wire.Tags.Location != nil {
		location = normalizeLocation(*wire.Tags.Location)
	}

	return Classification{
		Category:   wire.Category,
		Confidence: clampConfidence(wire.Confidence),
		Tags: Tags{
			NeedsWeatherAPI:         wire.Tags.NeedsWeatherAPI,
			NeedsWebSearch:          wire.Tags.NeedsWebSearch,
			Location:                location,
			IsQuestion:              wire.Tags.IsQuestion,
			IsComparison:            wire.Tags.IsComparison,
			IsRecommendationRequest: wire.Tags.IsRecommendationRequest,
		},
	}, nil
}

func (c *JSONClassifier) buildPrompt(userInput string, chat genports.ChatContext) string {
	var b strings.Builder
	b.WriteString("You are a travel assistant task classifier. Analyze the user's input and respond with a single JSON object, nothing else.\n\n")
	b.WriteString("The object must have exactly these fields:\n")
	b.WriteString(`  "category": one of `)
	b.WriteString(strings.Join(c.categories, ", "))
	b.WriteString("\n")
	b.WriteString("  \"confidence\": a number between 0.0 and 1.0\n")
	b.WriteString("  \"tags\": an object with needs_weather_api, needs_web_search, location, is_question, is_comparison, is_recommendation_request\n\n")
	b.WriteString("User input: \"")
	b.WriteString(userInput)
	b.WriteString("\"")
	if snippet := contextSnippet(chat); snippet != "" {
		b.WriteString("\nConversation context: ")
		b.WriteString(snippet)
	}
	b.WriteString("\n\nExamples:\n")
	b.WriteString(`{"category": "attractions", "confidence": 0.9, "tags": {"needs_weather_api": false, "needs_web_search": true, "location": "paris, france", "is_question": true, "is_comparison": false, "is_recommendation_request": true}}`)
	b.WriteString("\n")
	b.WriteString(`{"category": "packing", "confidence": 0.8, "tags": {"needs_weather_api": true, "needs_web_search": false, "location": "london, britain", "is_question": true, "is_comparison": false, "is_recommendation_request": true}}`)
	b.WriteString("\n")
	return b.String()
}

func compileClassificationSchema(categories []string) (*gojsonschema.Schema, error) {
	enum := make([]any, len(categories))
	for i, c := range categories {
		enum[i] = c
	}

	doc := map[string]any{
		"type":                 "object",
		"required":             []any{"category", "confidence", "tags"},
		"additionalProperties": false,
		"properties": map[string]any{
			"category":   map[string]any{"type": "string", "enum": enum},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"tags": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"needs_weather_api":         map[string]any{"type": "boolean"},
					"needs_web_search":          map[string]any{"type": "boolean"},
					"location":                  map[string]any{"type": []any{"string", "null"}},
					"is_question":               map[string]any{"type": "boolean"},
					"is_comparison":             map[string]any{"type": "boolean"},
					"is_recommendation_request": map[string]any{"type": "boolean"},
				},
			},
		},
	}
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

var _ Classifier = (*JSONClassifier)(nil)
