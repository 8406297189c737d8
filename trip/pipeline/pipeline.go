// Package pipeline runs the fixed per-utterance flow: classify,
// optionally fetch external data, invoke the selected handler,
// summarize, persist the turn. The user always receives a textual
// answer, even under total backend failure.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/tripmate-ai/tripmate/trip/classify"
	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
	"github.com/tripmate-ai/tripmate/trip/handlers"
	"github.com/tripmate-ai/tripmate/trip/memory"
	"github.com/tripmate-ai/tripmate/trip/router"
	"github.com/tripmate-ai/tripmate/trip/tools"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Answer         string
	HandlerUsed    string
	Confidence     float64
	Success        bool
	Classification classify.Classification
	TurnID         string
}

// Pipeline wires the conversation manager, router, data sources, and
// the summary specialist into the per-turn flow.
type Pipeline struct {
	manager       *memory.ConversationManager
	router        *router.TaskRouter
	summary       handlers.Handler
	weather       *tools.WeatherClient
	search        *tools.SearchClient
	memoryEnabled bool
	logger        zerolog.Logger
}

// New creates a pipeline. weather and search may be nil when the
// corresponding data source is not wired. memoryEnabled gates turn
// persistence, memory extraction, and summarization; a disabled run
// still answers but leaves no durable trace.
func New(manager *memory.ConversationManager, taskRouter *router.TaskRouter, summary handlers.Handler, weather *tools.WeatherClient, search *tools.SearchClient, memoryEnabled bool, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		manager:       manager,
		router:        taskRouter,
		summary:       summary,
		weather:       weather,
		search:        search,
		memoryEnabled: memoryEnabled,
		logger:        logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run processes one utterance to completion for sessionID, starting
// the session when it is not yet active.
func (p *Pipeline) Run(ctx context.Context, sessionID, userInput string) (*Result, error) {
	if p.manager.GetSession(sessionID) == nil {
		p.manager.StartSession(sessionID)
	}

	chat := p.manager.BuildChatContext(sessionID, userInput)

	decision, err := p.router.Route(ctx, userInput, chat)
	if err != nil {
		return nil, fmt.Errorf("routing failed: %w", err)
	}
	classification := decision.Classification

	conversationContext := p.manager.GetSession(sessionID)
	if classification.Tags.Location != "" && conversationContext != nil {
		conversationContext.CurrentTopic = classification.Tags.Location
	}

	p.fetchExternalData(ctx, userInput, classification, conversationContext, &chat)

	taskResult := decision.Handler.Process(ctx, userInput, chat, classification.Tags)

	var turnID string
	if p.memoryEnabled {
		turnID, err = p.manager.AddTurn(sessionID, userInput, taskResult.Response, map[string]any{
			"handler_used":        taskResult.TaskType,
			"routing_confidence":  classification.Confidence,
			"confidence":          taskResult.Confidence,
			"classification_tags": classification.Tags,
			"success":             taskResult.Success,
		})
		if err != nil {
			// The answer is already produced; a persistence problem must
			// not swallow it.
			p.logger.Warn().Err(err).Msg("could not persist conversation turn")
		}

		// Summaries attach to the metadata of the most recent turn, so the
		// turn is persisted first.
		p.generateSummary(ctx, sessionID)
	}

	return &Result{
		Answer:         taskResult.Response,
		HandlerUsed:    taskResult.TaskType,
		Confidence:     taskResult.Confidence,
		Success:        taskResult.Success,
		Classification: classification,
		TurnID:         turnID,
	}, nil
}

// fetchExternalData pulls weather and web-search payloads concurrently
// when the classification flags them, folding each payload (or its
// error) into the chat context as opaque system text.
func (p *Pipeline) fetchExternalData(ctx context.Context, userInput string, classification classify.Classification, conversationContext *memory.ConversationContext, chat *genports.ChatContext) {
	needsWeather := classification.Tags.NeedsWeatherAPI && p.weather != nil
	needsSearch := classification.Tags.NeedsWebSearch && p.search != nil
	if !needsWeather && !needsSearch {
		return
	}

	var weatherInfo, webInfo string

	var wg conc.WaitGroup
	if needsWeather {
		wg.Go(func() {
			location := classification.Tags.Location
			if location == "" && conversationContext != nil {
				location = conversationContext.CurrentTopic
			}
			if location == "" {
				weatherInfo = payloadText(map[string]any{"error": "No location available for weather data"})
				return
			}
			report, err := p.weather.Get(ctx, location)
			if err != nil {
				weatherInfo = payloadText(map[string]any{"error": err.Error()})
				return
			}
			weatherInfo = payloadText(report)
		})
	}
	if needsSearch {
		wg.Go(func() {
			query := userInput
			if classification.Tags.Location != "" {
				query = userInput + " " + classification.Tags.Location
			}
			results, err := p.search.Search(ctx, query, 3)
			if err != nil {
				webInfo = payloadText(map[string]any{"error": err.Error()})
				return
			}
			webInfo = payloadText(results)
		})
	}
	wg.Wait()

	if weatherInfo != "" {
		chat.AddMessage(genports.RoleSystem, "Weather data: "+weatherInfo)
	}
	if webInfo != "" {
		chat.AddMessage(genports.RoleSystem, "Web search results: "+webInfo)
	}
}

// generateSummary runs the summary specialist over the most recent
// turns, which include the fresh answer, and stores the result.
// Failures are logged and never fatal to the turn.
func (p *Pipeline) generateSummary(ctx context.Context, sessionID string) {
	if p.summary == nil {
		return
	}

	var chat genports.ChatContext
	chat.AddMessage(genports.RoleSystem, "this is the assistant answers to the user questions.")

	if conversationContext := p.manager.ConversationContextFor(sessionID); conversationContext != nil {
		turns := conversationContext.ConversationTurns
		if len(turns) > 6 {
			turns = turns[len(turns)-6:]
		}
		for _, turn := range turns {
			chat.AddMessage(genports.RoleAssistant, turn.AssistantResponse)
		}
	}

	summaryResult := p.summary.Process(ctx, "", chat, classify.Tags{})
	if !summaryResult.Success {
		p.logger.Warn().Str("session_id", sessionID).Msg("summary generation failed")
		return
	}
	p.manager.UpdateSessionSummary(sessionID, summaryResult.Response)
}

// payloadText renders a data source payload as opaque prompt text.
func payloadText(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
