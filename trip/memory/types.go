// Package memory implements the durable memory store and the
// per-session conversation manager layered on top of it.
package memory

import (
	"time"
)

// Memory entry types used by the built-in extraction heuristics.
const (
	EntryTypeGeneral    = "general"
	EntryTypePreference = "preference"
	EntryTypeContext    = "context"
	EntryTypeFact       = "fact"
)

// MemoryEntry is a durable, independently retrievable fact extracted
// from conversation. Identity is immutable; content, importance and
// tags may change via partial update.
type MemoryEntry struct {
	EntryID      string         `json:"entry_id"`
	Content      string         `json:"content"`
	EntryType    string         `json:"entry_type"`
	Importance   float64        `json:"importance"` // clamped to [0,1]
	CreatedAt    time.Time      `json:"created_at"`
	LastAccessed *time.Time     `json:"last_accessed,omitempty"`
	AccessCount  int            `json:"access_count"`
	Tags         []string       `json:"tags"`
	Metadata     map[string]any `json:"metadata"`
}

// ConversationTurn is one user input + assistant response pair in a
// session's append-only log. Turns are never mutated after append,
// except to attach a summary to the metadata of the most recent turn.
type ConversationTurn struct {
	TurnID            string         `json:"turn_id"`
	Timestamp         time.Time      `json:"timestamp"`
	UserInput         string         `json:"user_input"`
	AssistantResponse string         `json:"assistant_response"`
	Metadata          map[string]any `json:"metadata"`
}

// ConversationContext is the in-memory working state of one session:
// a capped view of recent turns plus a ranked, recomputed set of
// relevant memories. It is discarded on session end; the durable
// store outlives it.
type ConversationContext struct {
	SessionID         string
	ConversationTurns []ConversationTurn
	RelevantMemories  []*MemoryEntry
	CurrentTopic      string
	Summary           string
	CreatedAt         time.Time
	LastUpdated       time.Time
}

// MemoryUpdate carries a partial update for an entry. Nil fields are
// left untouched.
type MemoryUpdate struct {
	Content    *string
	EntryType  *string
	Importance *float64
	Tags       []string
	Metadata   map[string]any
}

// Stats summarizes the contents of a store.
type Stats struct {
	TotalMemories int            `json:"total_memories"`
	MemoryTypes   map[string]int `json:"memory_types"`
	TotalSessions int            `json:"total_sessions"`
	AvgImportance float64        `json:"avg_importance"`
}

func clampImportance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
