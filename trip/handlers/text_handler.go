package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripmate-ai/tripmate/trip/classify"
	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// TextHandler is the shared implementation behind the specialist
// handlers: it folds its prompt template, the classification context,
// and the assembled chat messages into one completion prompt and runs
// it through the generation backend.
type TextHandler struct {
	taskType    string
	description string
	template    string
	generator   genports.Generator
	logger      zerolog.Logger

	// buildPrompt overrides the default prompt construction when set
	// (the summary specialist flattens the whole conversation instead).
	buildPrompt func(userInput string, chat genports.ChatContext, tags classify.Tags) string
}

// NewTextHandler creates a handler for taskType with the given prompt
// template.
func NewTextHandler(taskType, description, template string, generator genports.Generator, logger zerolog.Logger) *TextHandler {
	return &TextHandler{
		taskType:    taskType,
		description: description,
		template:    template,
		generator:   generator,
		logger:      logger.With().Str("handler_type", taskType).Logger(),
	}
}

func (h *TextHandler) TaskType() string    { return h.taskType }
func (h *TextHandler) Description() string { return h.description }

// BuildPrompt renders the template plus classification context as the
// leading system message, carries the chat messages through unchanged,
// and ends with the current input when the chat does not already
// contain it.
func (h *TextHandler) BuildPrompt(userInput string, chat genports.ChatContext, tags classify.Tags) string {
	if h.buildPrompt != nil {
		return h.buildPrompt(userInput, chat, tags)
	}

	var contextInfo strings.Builder
	if tags.Location != "" {
		contextInfo.WriteString("Current location context: " + tags.Location + "\n")
	}
	if tags.NeedsWeatherAPI {
		contextInfo.WriteString("Weather information is relevant to this query.\n")
	}

	var full genports.ChatContext
	full.AddMessage(genports.RoleSystem, strings.TrimSpace(h.template+"\n\n"+contextInfo.String()))
	full.Messages = append(full.Messages, chat.Messages...)
	if len(chat.UserMessages()) == 0 {
		full.AddMessage(genports.RoleUser, userInput)
	}

	prompt := full.FlattenPrompt()
	h.logger.Debug().
		Int("prompt_length", len(prompt)).
		Int("message_count", len(full.Messages)).
		Msg("prompt built")
	return prompt
}

// Process runs the handler to completion. Backend failures and empty
// responses are converted into failure results, never returned as
// errors.
func (h *TextHandler) Process(ctx context.Context, userInput string, chat genports.ChatContext, tags classify.Tags) TaskResult {
	h.logger.Info().Int("user_input_length", len(userInput)).Msg("handler processing started")

	prompt := h.BuildPrompt(userInput, chat, tags)
	response, err := h.generator.Generate(ctx, prompt, genports.Options{})
	if err != nil {
		h.logger.Error().Err(err).Msg("handler processing failed")
		return h.failure("I encountered an error while processing your query: "+err.Error(), err.Error())
	}

	response = strings.TrimSpace(response)
	if response == "" {
		h.logger.Error().Msg("handler returned empty response")
		return h.failure("I encountered an error while processing your query: empty response from backend", "empty response")
	}

	result := TaskResult{
		Success:    true,
		Response:   response,
		TaskType:   h.taskType,
		Confidence: 0.9,
		Metadata:   h.metadata(userInput, chat, tags),
		CreatedAt:  time.Now(),
	}
	h.logger.Info().
		Bool("success", true).
		Float64("confidence", result.Confidence).
		Int("response_length", len(response)).
		Msg("handler processing completed")
	return result
}

func (h *TextHandler) failure(response, errText string) TaskResult {
	return TaskResult{
		Success:    false,
		Response:   response,
		TaskType:   h.taskType,
		Confidence: 0,
		Metadata:   map[string]any{"error": errText},
		CreatedAt:  time.Now(),
	}
}

func (h *TextHandler) metadata(userInput string, chat genports.ChatContext, tags classify.Tags) map[string]any {
	return map[string]any{
		"handler_type":      h.taskType,
		"user_input_length": len(userInput),
		"message_count":     len(chat.Messages),
		"tags":              tags,
	}
}

var _ Handler = (*TextHandler)(nil)
