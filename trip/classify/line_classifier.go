package classify

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// LineClassifier speaks a key: value line protocol for backends that
// cannot reliably emit JSON. The parser is tolerant: unknown lines are
// ignored and missing fields keep their fallback defaults.
type LineClassifier struct {
	generator  genports.Generator
	categories map[string]struct{}
	order      []string
	logger     zerolog.Logger
}

// NewLineClassifier builds a line-protocol classifier restricted to
// categories; the catch-all is appended when missing.
func NewLineClassifier(generator genports.Generator, categories []string, logger zerolog.Logger) *LineClassifier {
	set := make(map[string]struct{}, len(categories)+1)
	order := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		if _, ok := set[c]; ok {
			continue
		}
		set[c] = struct{}{}
		order = append(order, c)
	}
	if _, ok := set[CategoryOther]; !ok {
		set[CategoryOther] = struct{}{}
		order = append(order, CategoryOther)
	}
	return &LineClassifier{
		generator:  generator,
		categories: set,
		order:      order,
		logger:     logger.With().Str("component", "line_classifier").Logger(),
	}
}

// Classify runs one backend call and parses the response line by
// line. The returned error is always nil; failures collapse into
// Fallback.
func (c *LineClassifier) Classify(ctx context.Context, userInput string, chat genports.ChatContext) (Classification, error) {
	prompt := c.buildPrompt(userInput, chat)

	response, err := c.generator.Generate(ctx, prompt, genports.Options{Temperature: 0.1})
	if err != nil {
		c.logger.Warn().Err(err).Msg("classification backend call failed, using fallback")
		return Fallback(), nil
	}

	return c.Parse(response), nil
}

// Parse extracts a classification from the line protocol. Fields that
// never appear keep fallback defaults; an unknown category collapses
// to the catch-all while keeping the parsed confidence.
func (c *LineClassifier) Parse(response string) Classification {
	result := Fallback()

	for _, line := range strings.Split(response, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "category":
			result.Category = value
		case "confidence":
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				result.Confidence = clampConfidence(parsed)
			} else {
				result.Confidence = FallbackConfidence
			}
		case "needs_weather_api":
			result.Tags.NeedsWeatherAPI = value == "true"
		case "needs_web_search":
			result.Tags.NeedsWebSearch = value == "true"
		case "location":
			result.Tags.Location = normalizeLocation(value)
		case "is_question":
			result.Tags.IsQuestion = value == "true"
		case "is_comparison":
			result.Tags.IsComparison = value == "true"
		case "is_recommendation_request":
			result.Tags.IsRecommendationRequest = value == "true"
		}
	}

	if _, ok := c.categories[result.Category]; !ok {
		result.Category = CategoryOther
	}
	return result
}

func (c *LineClassifier) buildPrompt(userInput string, chat genports.ChatContext) string {
	var b strings.Builder
	b.WriteString("You are a travel assistant task classifier. Analyze the user's input and provide:\n\n")
	b.WriteString("1. Category classification (")
	b.WriteString(strings.Join(c.order, ", "))
	b.WriteString(") those are the categories you can handle\n")
	b.WriteString("2. Confidence score (0.0-1.0)\n")
	b.WriteString("3. Tags and extracted information\n\n")
	b.WriteString("User input: \"")
	b.WriteString(userInput)
	b.WriteString("\"")
	if snippet := contextSnippet(chat); snippet != "" {
		b.WriteString("\nConversation context: ")
		b.WriteString(snippet)
	}
	b.WriteString("\n\nRespond in this exact format:\n")
	b.WriteString("category: [category_name]\n")
	b.WriteString("confidence: [score]\n")
	b.WriteString("needs_weather_api: [true/false]\n")
	b.WriteString("needs_web_search: [true/false]\n")
	b.WriteString("location: [extracted location or \"none\"]\n")
	b.WriteString("is_question: [true/false]\n")
	b.WriteString("is_comparison: [true/false]\n")
	b.WriteString("is_recommendation_request: [true/false]\n\n")
	b.WriteString("Examples:\n")
	b.WriteString("category: attractions\nconfidence: 0.9\nneeds_weather_api: false\nneeds_web_search: true\nlocation: paris, france\nis_question: true\nis_comparison: false\nis_recommendation_request: true\n\n")
	b.WriteString("category: packing\nconfidence: 0.8\nneeds_weather_api: true\nneeds_web_search: false\nlocation: london, britain\nis_question: true\nis_comparison: false\nis_recommendation_request: true\n")
	return b.String()
}

var _ Classifier = (*LineClassifier)(nil)
