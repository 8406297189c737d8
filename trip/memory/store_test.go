package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "memory.json"), zerolog.Nop())
}

func TestAddAndGetMemory(t *testing.T) {
	store := newTestStore(t)

	id := store.AddMemory("User is traveling to Japan in spring", EntryTypeContext, 0.8, []string{"travel"}, nil)
	require.NotEmpty(t, id)

	entry := store.GetMemory(id)
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.AccessCount)
	assert.NotNil(t, entry.LastAccessed)
	assert.Equal(t, EntryTypeContext, entry.EntryType)

	entry = store.GetMemory(id)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.AccessCount)
}

func TestGetMemoryMissReturnsNil(t *testing.T) {
	store := newTestStore(t)
	assert.Nil(t, store.GetMemory("no-such-id"))
}

func TestSearchMemories(t *testing.T) {
	store := newTestStore(t)
	japanID := store.AddMemory("User is traveling to Japan in spring", EntryTypeContext, 0.8, nil, nil)
	store.AddMemory("User prefers beach destinations", EntryTypePreference, 0.7, nil, nil)

	results := store.SearchMemories("japan", "", 0, 10)
	require.Len(t, results, 1)
	assert.Equal(t, japanID, results[0].EntryID)
}

func TestSearchOrderedByImportanceThenAccess(t *testing.T) {
	store := newTestStore(t)
	lowID := store.AddMemory("tokyo has great food", "", 0.3, nil, nil)
	highID := store.AddMemory("tokyo in spring is ideal", "", 0.9, nil, nil)
	midID := store.AddMemory("tokyo hotels fill up fast", "", 0.6, nil, nil)

	results := store.SearchMemories("tokyo", "", 0, 10)
	require.Len(t, results, 3)
	assert.Equal(t, highID, results[0].EntryID)
	assert.Equal(t, midID, results[1].EntryID)
	assert.Equal(t, lowID, results[2].EntryID)
}

func TestSearchFilters(t *testing.T) {
	store := newTestStore(t)
	store.AddMemory("likes trains", EntryTypePreference, 0.9, nil, nil)
	store.AddMemory("likes planes", EntryTypeGeneral, 0.2, nil, nil)

	byType := store.SearchMemories("likes", EntryTypePreference, 0, 10)
	require.Len(t, byType, 1)
	assert.Equal(t, EntryTypePreference, byType[0].EntryType)

	byImportance := store.SearchMemories("likes", "", 0.5, 10)
	require.Len(t, byImportance, 1)
	assert.Equal(t, "likes trains", byImportance[0].Content)
}

func TestEmptyQueryMatchesEverything(t *testing.T) {
	store := newTestStore(t)
	store.AddMemory("a", EntryTypePreference, 0.5, nil, nil)
	store.AddMemory("b", EntryTypePreference, 0.5, nil, nil)
	store.AddMemory("c", EntryTypeGeneral, 0.5, nil, nil)

	assert.Len(t, store.SearchMemories("", EntryTypePreference, 0, 10), 2)
	assert.Len(t, store.SearchMemories("", "", 0, 10), 3)
}

func TestSearchLimit(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		store.AddMemory("osaka street food", "", 0.5, nil, nil)
	}
	assert.Len(t, store.SearchMemories("osaka", "", 0, 2), 2)
}

func TestSearchZeroLimitMatchesNothing(t *testing.T) {
	store := newTestStore(t)
	store.AddMemory("osaka street food", "", 0.5, []string{"travel"}, nil)

	assert.Empty(t, store.SearchMemories("osaka", "", 0, 0))
	assert.Empty(t, store.MemoriesByTags([]string{"travel"}, 0))
}

func TestMemoriesByTags(t *testing.T) {
	store := newTestStore(t)
	taggedID := store.AddMemory("budget is tight", "", 0.9, []string{"budget", "planning"}, nil)
	store.AddMemory("loves sushi", "", 0.9, []string{"food"}, nil)

	results := store.MemoriesByTags([]string{"budget", "travel"}, 10)
	require.Len(t, results, 1)
	assert.Equal(t, taggedID, results[0].EntryID)
}

func TestUpdateMemory(t *testing.T) {
	store := newTestStore(t)
	id := store.AddMemory("old content", "", 0.5, nil, nil)

	newContent := "new content"
	newImportance := 0.9
	ok := store.UpdateMemory(id, MemoryUpdate{Content: &newContent, Importance: &newImportance})
	require.True(t, ok)

	entry := store.GetMemory(id)
	assert.Equal(t, "new content", entry.Content)
	assert.Equal(t, 0.9, entry.Importance)

	assert.False(t, store.UpdateMemory("absent", MemoryUpdate{Content: &newContent}))
}

func TestImportanceClamped(t *testing.T) {
	store := newTestStore(t)
	id := store.AddMemory("x", "", 3.5, nil, nil)
	entry := store.GetMemory(id)
	assert.Equal(t, 1.0, entry.Importance)
}

func TestDeleteMemory(t *testing.T) {
	store := newTestStore(t)
	id := store.AddMemory("x", "", 0.5, nil, nil)

	assert.True(t, store.DeleteMemory(id))
	assert.Nil(t, store.GetMemory(id))
	assert.False(t, store.DeleteMemory(id))
}

func TestDeleteAllMemoriesKeepsSessions(t *testing.T) {
	store := newTestStore(t)
	store.AddMemory("x", "", 0.5, nil, nil)
	store.AddConversationTurn("s1", "hi", "hello", nil)

	store.DeleteAllMemories()

	assert.Equal(t, 0, store.MemoryStats().TotalMemories)
	assert.Len(t, store.ConversationHistory("s1", 0), 1)
}

func TestConversationHistory(t *testing.T) {
	store := newTestStore(t)
	store.AddConversationTurn("s1", "one", "r1", nil)
	store.AddConversationTurn("s1", "two", "r2", nil)
	store.AddConversationTurn("s1", "three", "r3", nil)

	all := store.ConversationHistory("s1", 0)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].UserInput)
	assert.Equal(t, "three", all[2].UserInput)

	last := store.ConversationHistory("s1", 2)
	require.Len(t, last, 2)
	assert.Equal(t, "two", last[0].UserInput)
}

func TestConversationSummary(t *testing.T) {
	store := newTestStore(t)

	// No turns: empty, no panic.
	assert.Equal(t, "", store.ConversationSummary("s1"))

	store.AddConversationTurn("s1", "hi", "hello", nil)
	assert.Equal(t, "", store.ConversationSummary("s1"))

	store.UpdateConversationSummary("s1", "user greeted the assistant")
	assert.Equal(t, "user greeted the assistant", store.ConversationSummary("s1"))

	// Summary attaches to the most recent turn only.
	store.AddConversationTurn("s1", "bye", "goodbye", nil)
	assert.Equal(t, "", store.ConversationSummary("s1"))
}

func TestUpdateSummaryNoTurnsIsNoop(t *testing.T) {
	store := newTestStore(t)
	store.UpdateConversationSummary("empty", "text")
	assert.Equal(t, "", store.ConversationSummary("empty"))
}

func TestClearSessionAndListSessions(t *testing.T) {
	store := newTestStore(t)
	store.AddConversationTurn("b", "x", "y", nil)
	store.AddConversationTurn("a", "x", "y", nil)

	assert.Equal(t, []string{"a", "b"}, store.AllSessions())

	store.ClearSession("a")
	assert.Equal(t, []string{"b"}, store.AllSessions())
	assert.Empty(t, store.ConversationHistory("a", 0))
}

func TestMemoryStats(t *testing.T) {
	store := newTestStore(t)
	store.AddMemory("a", EntryTypePreference, 0.4, nil, nil)
	store.AddMemory("b", EntryTypePreference, 0.6, nil, nil)
	store.AddMemory("c", EntryTypeGeneral, 0.5, nil, nil)
	store.AddConversationTurn("s1", "x", "y", nil)

	stats := store.MemoryStats()
	assert.Equal(t, 3, stats.TotalMemories)
	assert.Equal(t, 2, stats.MemoryTypes[EntryTypePreference])
	assert.Equal(t, 1, stats.MemoryTypes[EntryTypeGeneral])
	assert.Equal(t, 1, stats.TotalSessions)
	assert.InDelta(t, 0.5, stats.AvgImportance, 1e-9)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	store := NewStore(path, zerolog.Nop())

	ids := map[string]bool{
		store.AddMemory("entry one", EntryTypeFact, 0.3, []string{"t1"}, map[string]any{"k": "v"}): true,
		store.AddMemory("entry two", EntryTypePreference, 0.7, nil, nil):                           true,
	}
	store.AddConversationTurn("s1", "q1", "a1", map[string]any{"handler_used": "other"})
	store.AddConversationTurn("s1", "q2", "a2", nil)
	store.AddConversationTurn("s2", "q3", "a3", nil)

	reloaded := NewStore(path, zerolog.Nop())

	stats := reloaded.MemoryStats()
	assert.Equal(t, 2, stats.TotalMemories)
	assert.Equal(t, 2, stats.TotalSessions)

	for _, entry := range reloaded.SearchMemories("", "", 0, 10) {
		assert.True(t, ids[entry.EntryID], "unexpected entry id %s", entry.EntryID)
	}

	history := reloaded.ConversationHistory("s1", 0)
	require.Len(t, history, 2)
	assert.Equal(t, "q1", history[0].UserInput)
	assert.Equal(t, "a2", history[1].AssistantResponse)
	assert.Equal(t, "other", history[0].Metadata["handler_used"])
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewStore(path, zerolog.Nop())
	assert.Equal(t, 0, store.MemoryStats().TotalMemories)

	// The store remains usable and overwrites the corrupt file.
	store.AddMemory("fresh", "", 0.5, nil, nil)
	assert.Equal(t, 1, NewStore(path, zerolog.Nop()).MemoryStats().TotalMemories)
}
