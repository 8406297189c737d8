// Package classify maps a raw utterance plus conversation context to
// a structured classification via one call to the generation backend.
// Classification failure is never fatal: every parse, schema, or
// backend error collapses into a deterministic fallback.
package classify

import (
	"context"
	"strings"

	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// CategoryOther is the mandatory catch-all category. It always has a
// registered handler and every fallback resolves to it.
const CategoryOther = "other"

// FallbackConfidence is the confidence attached to every fallback
// classification.
const FallbackConfidence = 0.5

// Tags carries the auxiliary signals extracted alongside the category.
// An empty Location means no location was identified.
type Tags struct {
	NeedsWeatherAPI         bool   `json:"needs_weather_api"`
	NeedsWebSearch          bool   `json:"needs_web_search"`
	Location                string `json:"location"`
	IsQuestion              bool   `json:"is_question"`
	IsComparison            bool   `json:"is_comparison"`
	IsRecommendationRequest bool   `json:"is_recommendation_request"`
}

// Classification is the structured result of one classification call.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Tags       Tags    `json:"tags"`
}

// Classifier produces a classification for an utterance given the
// assembled chat context. Implementations backed by the generation
// backend swallow backend failures and return Fallback; external
// implementations may return an error, which routing treats the same
// way.
type Classifier interface {
	Classify(ctx context.Context, userInput string, chat genports.ChatContext) (Classification, error)
}

// Fallback is the deterministic classification applied whenever the
// backend call, parsing, or validation fails.
func Fallback() Classification {
	return Classification{Category: CategoryOther, Confidence: FallbackConfidence}
}

// normalizeLocation trims the extracted location and treats the
// literal tokens "none" and "null" as absent.
func normalizeLocation(location string) string {
	cleaned := strings.ToLower(strings.TrimSpace(location))
	if cleaned == "none" || cleaned == "null" {
		return ""
	}
	return cleaned
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// contextSnippet extracts up to 200 characters of conversation context
// for inclusion in classification prompts.
func contextSnippet(chat genports.ChatContext) string {
	var parts []string
	for _, m := range chat.Messages {
		if m.Role == genports.RoleSystem || m.Role == genports.RoleAssistant {
			parts = append(parts, m.Content)
		}
	}
	joined := strings.Join(parts, " ")
	if len(joined) > 200 {
		joined = joined[:200] + "..."
	}
	return joined
}
