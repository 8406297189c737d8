package memory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/rs/zerolog"

	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

// ErrSessionNotFound is returned when a turn is added to a session
// that was never started. The caller owns the session lifecycle.
var ErrSessionNotFound = errors.New("session not found")

// Words in user input that trigger extraction of a preference memory.
var preferenceSignals = []string{"like", "prefer", "love", "hate", "dislike"}

// Tags searched when assembling relevant memories for a context.
var contextTags = []string{"travel", "preference", "budget", "context"}

// DefaultPersona is the system instruction that opens every chat context.
const DefaultPersona = "You are a helpful travel assistant."

// SessionSummary is a point-in-time report about one session.
type SessionSummary struct {
	SessionID           string          `json:"session_id"`
	TotalTurns          int             `json:"total_turns"`
	DurationMinutes     float64         `json:"duration_minutes"`
	CurrentTopic        string          `json:"current_topic"`
	UserPreferences     map[string]bool `json:"user_preferences"`
	RelevantMemoryCount int             `json:"relevant_memories_count"`
	CreatedAt           time.Time       `json:"created_at"`
	LastUpdated         time.Time       `json:"last_updated"`
}

// ConversationManager owns in-memory session state and orchestrates
// the store to load history, extract memories from turns, and compute
// the bounded relevant-memory set for each context.
type ConversationManager struct {
	store           *Store
	maxContextTurns int
	maxMemories     int
	sessions        map[string]*ConversationContext
	logger          zerolog.Logger
}

// NewConversationManager creates a manager over store. maxContextTurns
// bounds the turn window loaded into a context and maxMemories caps
// the relevant-memory set; non-positive values take the defaults 10
// and 5.
func NewConversationManager(store *Store, maxContextTurns, maxMemories int, logger zerolog.Logger) *ConversationManager {
	if maxContextTurns <= 0 {
		maxContextTurns = 10
	}
	if maxMemories <= 0 {
		maxMemories = 5
	}
	return &ConversationManager{
		store:           store,
		maxContextTurns: maxContextTurns,
		maxMemories:     maxMemories,
		sessions:        make(map[string]*ConversationContext),
		logger:          logger.With().Str("component", "conversation_manager").Logger(),
	}
}

// StartSession creates a fresh context for sessionID, generating an id
// when none is given. Starting twice with the same explicit id replaces
// the prior context.
func (m *ConversationManager) StartSession(sessionID string) string {
	if sessionID == "" {
		sessionID = shortuuid.New()
	}
	now := time.Now()
	m.sessions[sessionID] = &ConversationContext{
		SessionID:   sessionID,
		CreatedAt:   now,
		LastUpdated: now,
	}
	m.logger.Debug().Str("session_id", sessionID).Msg("session started")
	return sessionID
}

// GetSession returns the active context for sessionID, or nil.
func (m *ConversationManager) GetSession(sessionID string) *ConversationContext {
	return m.sessions[sessionID]
}

// EndSession drops the in-memory context. Durable data is untouched.
func (m *ConversationManager) EndSession(sessionID string) {
	delete(m.sessions, sessionID)
}

// AddTurn appends a turn to the durable log, mirrors it into the
// session context, extracts memories, and recomputes the relevant
// memory set. The session must have been started first.
func (m *ConversationManager) AddTurn(sessionID, userInput, assistantResponse string, metadata map[string]any) (string, error) {
	context := m.GetSession(sessionID)
	if context == nil {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	turnID := m.store.AddConversationTurn(sessionID, userInput, assistantResponse, metadata)

	turn := ConversationTurn{
		TurnID:            turnID,
		Timestamp:         time.Now(),
		UserInput:         userInput,
		AssistantResponse: assistantResponse,
		Metadata:          metadata,
	}
	context.ConversationTurns = append(context.ConversationTurns, turn)
	context.LastUpdated = time.Now()

	m.extractMemoriesFromTurn(turn)
	m.updateRelevantMemories(context)

	return turnID, nil
}

// UpdateSessionSummary writes the summary to both the in-memory
// context and the durable store.
func (m *ConversationManager) UpdateSessionSummary(sessionID, summary string) {
	if context := m.GetSession(sessionID); context != nil {
		context.Summary = summary
		context.LastUpdated = time.Now()
	}
	m.store.UpdateConversationSummary(sessionID, summary)
}

// extractMemoriesFromTurn stores a preference entry when the user
// input carries one of the trigger words. A cheap, explainable
// heuristic, not NLP.
func (m *ConversationManager) extractMemoriesFromTurn(turn ConversationTurn) {
	input := strings.ToLower(turn.UserInput)
	for _, signal := range preferenceSignals {
		if strings.Contains(input, signal) {
			m.store.AddMemory(
				"User preference: "+turn.UserInput,
				EntryTypePreference,
				0.7,
				[]string{"user_preference"},
				map[string]any{"turn_id": turn.TurnID},
			)
			return
		}
	}
}

// updateRelevantMemories recomputes the ranked relevant-memory set
// from the last three turns: a content search plus a fixed-tag search,
// each at half the cap, unioned with first-occurrence dedup, sorted by
// importance and truncated to the cap. The two halves may overlap
// after dedup, leaving fewer than the cap; that is expected. A cap of
// one leaves both half-cap searches empty.
func (m *ConversationManager) updateRelevantMemories(context *ConversationContext) {
	recent := context.ConversationTurns
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	var candidates []*MemoryEntry
	for _, turn := range recent {
		candidates = append(candidates, m.store.SearchMemories(turn.UserInput, "", 0, m.maxMemories/2)...)
		candidates = append(candidates, m.store.MemoriesByTags(contextTags, m.maxMemories/2)...)
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := make([]*MemoryEntry, 0, len(candidates))
	for _, entry := range candidates {
		if _, ok := seen[entry.EntryID]; ok {
			continue
		}
		seen[entry.EntryID] = struct{}{}
		unique = append(unique, entry)
	}

	sortEntries(unique)
	if len(unique) > m.maxMemories {
		unique = unique[:m.maxMemories]
	}
	context.RelevantMemories = unique
}

// ConversationContextFor reloads the turn window from the durable log,
// backfills the summary, recomputes relevant memories, and returns the
// refreshed context. Returns nil for unknown sessions.
func (m *ConversationManager) ConversationContextFor(sessionID string) *ConversationContext {
	context := m.GetSession(sessionID)
	if context == nil {
		return nil
	}

	context.ConversationTurns = m.store.ConversationHistory(sessionID, m.maxContextTurns)
	if context.Summary == "" {
		context.Summary = m.store.ConversationSummary(sessionID)
	}
	m.updateRelevantMemories(context)

	return context
}

// BuildChatContext assembles the ordered message sequence for the next
// generation step: persona, then up to three relevant memories, then
// the durable summary or (absent one) the assistant side of the last
// three turns, then the current input. Consumers depend on exactly
// this ordering.
func (m *ConversationManager) BuildChatContext(sessionID, currentInput string) genports.ChatContext {
	var chat genports.ChatContext
	chat.AddMessage(genports.RoleSystem, DefaultPersona)

	context := m.ConversationContextFor(sessionID)
	if context != nil && len(context.RelevantMemories) > 0 {
		var b strings.Builder
		b.WriteString("Relevant context from previous conversations:\n")
		top := context.RelevantMemories
		if len(top) > 3 {
			top = top[:3]
		}
		for _, entry := range top {
			b.WriteString("- ")
			b.WriteString(entry.Content)
			b.WriteString("\n")
		}
		chat.AddMessage(genports.RoleSystem, strings.TrimSpace(b.String()))
	}

	switch {
	case context != nil && context.Summary != "":
		chat.AddMessage(genports.RoleSystem, "Previous conversation summary: "+context.Summary)
	case context != nil && len(context.ConversationTurns) > 0:
		turns := context.ConversationTurns
		if len(turns) > 3 {
			turns = turns[len(turns)-3:]
		}
		for _, turn := range turns {
			chat.AddMessage(genports.RoleAssistant, turn.AssistantResponse)
		}
	}

	chat.AddMessage(genports.RoleUser, currentInput)
	return chat
}

// ExtractUserPreferences derives boolean preference flags from stored
// preference entries. Purely additive, no negation handling.
func (m *ConversationManager) ExtractUserPreferences(sessionID string) map[string]bool {
	if m.GetSession(sessionID) == nil {
		return map[string]bool{}
	}

	preferences := map[string]bool{}
	for _, entry := range m.store.SearchMemories("", EntryTypePreference, 0, 20) {
		content := strings.ToLower(entry.Content)
		if strings.Contains(content, "budget") || strings.Contains(content, "price") {
			preferences["budget_conscious"] = true
		}
		if strings.Contains(content, "luxury") || strings.Contains(content, "expensive") {
			preferences["luxury_preference"] = true
		}
		if strings.Contains(content, "family") || strings.Contains(content, "kids") {
			preferences["family_travel"] = true
		}
	}
	return preferences
}

// SessionSummaryFor reports a snapshot of the session's state.
func (m *ConversationManager) SessionSummaryFor(sessionID string) (SessionSummary, bool) {
	context := m.ConversationContextFor(sessionID)
	if context == nil {
		return SessionSummary{}, false
	}

	return SessionSummary{
		SessionID:           sessionID,
		TotalTurns:          len(context.ConversationTurns),
		DurationMinutes:     context.LastUpdated.Sub(context.CreatedAt).Minutes(),
		CurrentTopic:        context.CurrentTopic,
		UserPreferences:     m.ExtractUserPreferences(sessionID),
		RelevantMemoryCount: len(context.RelevantMemories),
		CreatedAt:           context.CreatedAt,
		LastUpdated:         context.LastUpdated,
	}, true
}

// Sessions lists every session id known to the durable store.
func (m *ConversationManager) Sessions() []string {
	return m.store.AllSessions()
}

// MemoryStats passes through to the store.
func (m *ConversationManager) MemoryStats() Stats {
	return m.store.MemoryStats()
}

// ClearSession drops the session's durable turn log.
func (m *ConversationManager) ClearSession(sessionID string) {
	m.store.ClearSession(sessionID)
}

// ClearAllMemory deletes every stored memory entry.
func (m *ConversationManager) ClearAllMemory() {
	m.store.DeleteAllMemories()
}
