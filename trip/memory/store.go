package memory

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Store is a durable, file-backed collection of memory entries plus
// per-session ordered turn logs. The whole store is serialized as one
// JSON document and rewritten on every mutation; that is O(total size)
// per write and only safe under a single writer, an accepted trade-off
// for the hundreds-to-low-thousands entry scale this targets.
type Store struct {
	path          string
	memories      map[string]*MemoryEntry
	conversations map[string][]ConversationTurn
	entropy       *rand.Rand
	logger        zerolog.Logger
}

// storeDocument is the on-disk shape of the store.
type storeDocument struct {
	Memories      []*MemoryEntry                `json:"memories"`
	Conversations map[string][]ConversationTurn `json:"conversations"`
}

// NewStore opens the store at path, loading any existing document.
// A missing or corrupt file is tolerated: the store starts empty and
// a warning is logged. Construction never fails.
func NewStore(path string, logger zerolog.Logger) *Store {
	s := &Store{
		path:          path,
		memories:      make(map[string]*MemoryEntry),
		conversations: make(map[string][]ConversationTurn),
		entropy:       rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:        logger.With().Str("component", "memory_store").Logger(),
	}
	s.loadFromDisk()
	return s
}

func (s *Store) loadFromDisk() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("path", s.path).Msg("memory store file does not exist")
		} else {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("could not load memory store")
		}
		return
	}

	var doc storeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("could not load memory store")
		return
	}

	for _, entry := range doc.Memories {
		if entry == nil || entry.EntryID == "" {
			continue
		}
		s.memories[entry.EntryID] = entry
	}
	for sessionID, turns := range doc.Conversations {
		s.conversations[sessionID] = turns
	}

	s.logger.Info().
		Int("memory_count", len(s.memories)).
		Int("session_count", len(s.conversations)).
		Str("path", s.path).
		Msg("memory store loaded")
}

// saveToDisk rewrites the whole document atomically (temp file +
// rename). Failures degrade to "this change is not durable" and are
// logged, never propagated: the in-memory mutation already happened.
func (s *Store) saveToDisk() {
	doc := storeDocument{
		Memories:      make([]*MemoryEntry, 0, len(s.memories)),
		Conversations: s.conversations,
	}
	for _, entry := range s.memories {
		doc.Memories = append(doc.Memories, entry)
	}
	sort.Slice(doc.Memories, func(i, j int) bool {
		return doc.Memories[i].EntryID < doc.Memories[j].EntryID
	})

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("could not serialize memory store")
		return
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("could not save memory store")
		return
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("could not save memory store")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("could not save memory store")
		return
	}

	s.logger.Debug().
		Int("memory_count", len(s.memories)).
		Int("session_count", len(s.conversations)).
		Msg("memory store saved")
}

// AddMemory creates a new entry and persists immediately, returning
// the generated id.
func (s *Store) AddMemory(content, entryType string, importance float64, tags []string, metadata map[string]any) string {
	if entryType == "" {
		entryType = EntryTypeGeneral
	}
	if tags == nil {
		tags = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}

	entry := &MemoryEntry{
		EntryID:    uuid.NewString(),
		Content:    content,
		EntryType:  entryType,
		Importance: clampImportance(importance),
		CreatedAt:  time.Now(),
		Tags:       tags,
		Metadata:   metadata,
	}
	s.memories[entry.EntryID] = entry
	s.saveToDisk()

	s.logger.Debug().
		Str("entry_id", entry.EntryID).
		Str("entry_type", entryType).
		Float64("importance", entry.Importance).
		Int("content_length", len(content)).
		Msg("memory added")
	return entry.EntryID
}

// GetMemory retrieves an entry by id, bumping its access count and
// last-access timestamp. A miss returns nil, not an error.
func (s *Store) GetMemory(entryID string) *MemoryEntry {
	entry, ok := s.memories[entryID]
	if !ok {
		s.logger.Debug().Str("entry_id", entryID).Msg("memory not found")
		return nil
	}
	now := time.Now()
	entry.LastAccessed = &now
	entry.AccessCount++
	s.saveToDisk()
	s.logger.Debug().Str("entry_id", entryID).Int("access_count", entry.AccessCount).Msg("memory accessed")
	return entry
}

// SearchMemories returns entries whose content contains query
// (case-insensitive), filtered by optional type and importance floor,
// ordered best-first and truncated to limit. An empty query matches
// everything; a non-positive limit matches nothing.
func (s *Store) SearchMemories(query, entryType string, minImportance float64, limit int) []*MemoryEntry {
	needle := strings.ToLower(query)

	var results []*MemoryEntry
	for _, entry := range s.memories {
		if entryType != "" && entry.EntryType != entryType {
			continue
		}
		if entry.Importance < minImportance {
			continue
		}
		if !strings.Contains(strings.ToLower(entry.Content), needle) {
			continue
		}
		results = append(results, entry)
	}

	sortEntries(results)
	total := len(results)
	results = truncateEntries(results, limit)

	s.logger.Debug().
		Str("query", truncateForLog(query)).
		Str("entry_type", entryType).
		Float64("min_importance", minImportance).
		Int("results_count", len(results)).
		Int("total_matches", total).
		Msg("memory search completed")
	return results
}

// MemoriesByTags returns entries whose tag set overlaps tags, ordered
// best-first and truncated to limit. A non-positive limit matches
// nothing.
func (s *Store) MemoriesByTags(tags []string, limit int) []*MemoryEntry {
	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		wanted[t] = struct{}{}
	}

	var results []*MemoryEntry
	for _, entry := range s.memories {
		for _, t := range entry.Tags {
			if _, ok := wanted[t]; ok {
				results = append(results, entry)
				break
			}
		}
	}

	sortEntries(results)
	return truncateEntries(results, limit)
}

// UpdateMemory applies the non-nil fields of update to the entry.
// Returns false when the id is absent.
func (s *Store) UpdateMemory(entryID string, update MemoryUpdate) bool {
	entry, ok := s.memories[entryID]
	if !ok {
		return false
	}
	if update.Content != nil {
		entry.Content = *update.Content
	}
	if update.EntryType != nil {
		entry.EntryType = *update.EntryType
	}
	if update.Importance != nil {
		entry.Importance = clampImportance(*update.Importance)
	}
	if update.Tags != nil {
		entry.Tags = update.Tags
	}
	if update.Metadata != nil {
		entry.Metadata = update.Metadata
	}
	s.saveToDisk()
	return true
}

// DeleteMemory removes an entry. Returns false when the id is absent.
func (s *Store) DeleteMemory(entryID string) bool {
	if _, ok := s.memories[entryID]; !ok {
		return false
	}
	delete(s.memories, entryID)
	s.saveToDisk()
	return true
}

// DeleteAllMemories drops every entry. Session logs are untouched.
func (s *Store) DeleteAllMemories() {
	s.memories = make(map[string]*MemoryEntry)
	s.saveToDisk()
}

// AddConversationTurn appends a turn to the session's log and
// persists, returning the generated turn id. Turn ids are ULIDs so
// they sort by creation time.
func (s *Store) AddConversationTurn(sessionID, userInput, assistantResponse string, metadata map[string]any) string {
	if metadata == nil {
		metadata = map[string]any{}
	}
	now := time.Now()
	turn := ConversationTurn{
		TurnID:            ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Timestamp:         now,
		UserInput:         userInput,
		AssistantResponse: assistantResponse,
		Metadata:          metadata,
	}
	s.conversations[sessionID] = append(s.conversations[sessionID], turn)
	s.saveToDisk()
	return turn.TurnID
}

// ConversationHistory returns the session's turns oldest-to-newest,
// optionally only the last limit turns (limit <= 0 means all).
func (s *Store) ConversationHistory(sessionID string, limit int) []ConversationTurn {
	turns := s.conversations[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// ConversationSummary reads the summary attached to the most recent
// turn's metadata. Sessions with no turns, or turns without a summary,
// yield "".
func (s *Store) ConversationSummary(sessionID string) string {
	turns := s.conversations[sessionID]
	if len(turns) == 0 {
		return ""
	}
	last := turns[len(turns)-1]
	if summary, ok := last.Metadata["summary"].(string); ok {
		return summary
	}
	return ""
}

// UpdateConversationSummary writes the summary into the most recent
// turn's metadata and persists. No-op when the session has no turns.
func (s *Store) UpdateConversationSummary(sessionID, summary string) {
	turns := s.conversations[sessionID]
	if len(turns) == 0 {
		return
	}
	last := &turns[len(turns)-1]
	if last.Metadata == nil {
		last.Metadata = map[string]any{}
	}
	last.Metadata["summary"] = summary
	s.saveToDisk()
}

// ClearSession drops the session's entire turn log.
func (s *Store) ClearSession(sessionID string) {
	if _, ok := s.conversations[sessionID]; !ok {
		return
	}
	delete(s.conversations, sessionID)
	s.saveToDisk()
}

// AllSessions returns every known session id, sorted for stable output.
func (s *Store) AllSessions() []string {
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MemoryStats reports aggregate statistics about stored memories.
func (s *Store) MemoryStats() Stats {
	stats := Stats{
		TotalMemories: len(s.memories),
		MemoryTypes:   map[string]int{},
		TotalSessions: len(s.conversations),
	}
	if len(s.memories) == 0 {
		return stats
	}

	var totalImportance float64
	for _, entry := range s.memories {
		stats.MemoryTypes[entry.EntryType]++
		totalImportance += entry.Importance
	}
	stats.AvgImportance = totalImportance / float64(len(s.memories))
	return stats
}

// sortEntries orders entries by importance then access count,
// descending, with stable tie-breaking on creation time and id so
// repeated computations over unchanged data rank identically.
func sortEntries(entries []*MemoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if a.AccessCount != b.AccessCount {
			return a.AccessCount > b.AccessCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.EntryID < b.EntryID
	})
}

func truncateEntries(entries []*MemoryEntry, limit int) []*MemoryEntry {
	if limit <= 0 {
		return nil
	}
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

func truncateForLog(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}
