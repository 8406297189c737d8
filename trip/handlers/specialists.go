package handlers

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tripmate-ai/tripmate/trip/classify"
	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// Task types of the built-in specialists. The catch-all key is owned
// by the classify package; routing depends on it always resolving.
const (
	TaskTypeDestination = "destination"
	TaskTypeAttractions = "attractions"
	TaskTypePacking     = "packing"
	TaskTypeOther       = classify.CategoryOther
	TaskTypeSummary     = "summary"
)

const destinationTemplate = `You are a travel destination expert. Help with:
- Destination recommendations
- Best times to visit
- Cultural insights
- Practical travel info

Be specific and helpful.`

const attractionsTemplate = `You are a travel attractions expert. Help with:
- Attraction recommendations
- Activity suggestions
- Sightseeing itineraries
- Practical info (hours, prices)

Be specific and helpful.`

const packingTemplate = `You are a travel packing expert. Help with:
- Packing lists and essentials
- What to bring for different trips
- Weather-appropriate clothing
- Travel documents and requirements

Be practical and specific.`

const otherTemplate = `You are a travel assistant specialized in destinations, attractions, and packing.

The user's question doesn't fit your expertise areas. Respond politely and guide them to ask about:
- Destination recommendations
- Attractions and activities
- Packing and preparation

Be helpful but honest about your limitations.`

const summaryTemplate = `You are an intelligent conversation summarizer for a travel assistant.

Your task is to create a concise, informative summary of the conversation that captures:
- Key travel preferences and requirements
- Destinations mentioned or discussed
- Trip details (dates, budget, type of trip)
- Important context for future interactions

%s

Generate a clear, structured summary that will help the assistant provide better responses in future interactions. Focus on actionable information and user preferences.

Summary:`

// NewDestinationHandler handles destination selection, information,
// and recommendations.
func NewDestinationHandler(generator genports.Generator, logger zerolog.Logger) *TextHandler {
	return NewTextHandler(TaskTypeDestination,
		"Handles destination selection, information, and recommendations",
		destinationTemplate, generator, logger)
}

// NewAttractionsHandler handles attractions, activities, and things
// to do queries.
func NewAttractionsHandler(generator genports.Generator, logger zerolog.Logger) *TextHandler {
	return NewTextHandler(TaskTypeAttractions,
		"Handles attractions, activities, and things to do queries",
		attractionsTemplate, generator, logger)
}

// NewPackingHandler handles packing, preparation, and travel
// essentials queries.
func NewPackingHandler(generator genports.Generator, logger zerolog.Logger) *TextHandler {
	return NewTextHandler(TaskTypePacking,
		"Handles packing, preparation, and travel essentials queries",
		packingTemplate, generator, logger)
}

// NewOtherHandler is the mandatory catch-all for queries that match
// no specialist.
func NewOtherHandler(generator genports.Generator, logger zerolog.Logger) *TextHandler {
	return NewTextHandler(TaskTypeOther,
		"Handles general queries and provides guidance for specialized travel assistance",
		otherTemplate, generator, logger)
}

// NewSummaryHandler generates conversation summaries. Its prompt
// flattens the whole message history into the template instead of the
// default system-plus-input construction.
func NewSummaryHandler(generator genports.Generator, logger zerolog.Logger) *TextHandler {
	h := NewTextHandler(TaskTypeSummary,
		"Generates intelligent summaries of conversation history",
		summaryTemplate, generator, logger)
	h.buildPrompt = func(_ string, chat genports.ChatContext, _ classify.Tags) string {
		var conversation strings.Builder
		for _, m := range chat.Messages {
			conversation.WriteString(titleRole(m.Role) + ": " + m.Content + "\n")
		}
		return fmt.Sprintf(summaryTemplate, conversation.String())
	}
	return h
}

func titleRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// RegisterDefaults registers the routable specialists (the summary
// handler is invoked directly by the pipeline, not routed to).
func RegisterDefaults(registry *Registry, generator genports.Generator, logger zerolog.Logger) error {
	for _, factory := range []Factory{
		func() Handler { return NewDestinationHandler(generator, logger) },
		func() Handler { return NewAttractionsHandler(generator, logger) },
		func() Handler { return NewPackingHandler(generator, logger) },
		func() Handler { return NewOtherHandler(generator, logger) },
	} {
		if err := registry.Register(factory, ""); err != nil {
			return err
		}
	}
	return nil
}
