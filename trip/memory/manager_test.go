package memory

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genports "github.com/tripmate-ai/tripmate/trip/generation/ports"
)

func newTestManager(t *testing.T) *ConversationManager {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "memory.json"), zerolog.Nop())
	return NewConversationManager(store, 10, 5, zerolog.Nop())
}

func TestStartSessionGeneratesID(t *testing.T) {
	mgr := newTestManager(t)

	id := mgr.StartSession("")
	require.NotEmpty(t, id)
	assert.NotNil(t, mgr.GetSession(id))

	explicit := mgr.StartSession("trip-planning")
	assert.Equal(t, "trip-planning", explicit)
}

func TestStartSessionTwiceReplacesContext(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")
	_, err := mgr.AddTurn("s1", "hello", "hi there", nil)
	require.NoError(t, err)

	mgr.StartSession("s1")
	assert.Empty(t, mgr.GetSession("s1").ConversationTurns)
}

func TestAddTurnUnknownSession(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.AddTurn("ghost", "hello", "hi", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAddTurnAppendsAndPersists(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")

	turnID, err := mgr.AddTurn("s1", "where should I go", "Try Lisbon.", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, turnID)

	history := mgr.store.ConversationHistory("s1", 0)
	require.Len(t, history, 1)
	assert.Equal(t, turnID, history[0].TurnID)
	assert.Len(t, mgr.GetSession("s1").ConversationTurns, 1)
}

func TestPreferenceExtraction(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")

	_, err := mgr.AddTurn("s1", "I love beach destinations", "Noted.", nil)
	require.NoError(t, err)

	prefs := mgr.store.SearchMemories("", EntryTypePreference, 0, 10)
	require.Len(t, prefs, 1)
	assert.Equal(t, "User preference: I love beach destinations", prefs[0].Content)
	assert.Equal(t, 0.7, prefs[0].Importance)
	assert.Equal(t, []string{"user_preference"}, prefs[0].Tags)
}

func TestNoPreferenceWithoutSignal(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")

	_, err := mgr.AddTurn("s1", "what is the weather in Rome", "Sunny.", nil)
	require.NoError(t, err)

	assert.Empty(t, mgr.store.SearchMemories("", EntryTypePreference, 0, 10))
}

func TestOnePreferencePerTurn(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")

	_, err := mgr.AddTurn("s1", "I love trains and prefer window seats", "Noted.", nil)
	require.NoError(t, err)

	assert.Len(t, mgr.store.SearchMemories("", EntryTypePreference, 0, 10), 1)
}

func TestRelevantMemoriesBoundedAndRanked(t *testing.T) {
	mgr := newTestManager(t)
	for i := 0; i < 8; i++ {
		mgr.store.AddMemory("kyoto temples are quiet", "", 0.5, []string{"travel"}, nil)
	}
	top := mgr.store.AddMemory("kyoto in autumn is the best time", "", 0.95, []string{"travel"}, nil)

	mgr.StartSession("s1")
	_, err := mgr.AddTurn("s1", "tell me about kyoto", "Kyoto is lovely.", nil)
	require.NoError(t, err)

	context := mgr.GetSession("s1")
	require.NotEmpty(t, context.RelevantMemories)
	assert.LessOrEqual(t, len(context.RelevantMemories), 5)
	assert.Equal(t, top, context.RelevantMemories[0].EntryID)
}

func TestRelevantMemoriesSingleCap(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "memory.json"), zerolog.Nop())
	mgr := NewConversationManager(store, 10, 1, zerolog.Nop())
	for i := 0; i < 4; i++ {
		store.AddMemory("rome in summer", "", 0.5, []string{"travel"}, nil)
	}

	mgr.StartSession("s1")
	_, err := mgr.AddTurn("s1", "rome tips", "Go early.", nil)
	require.NoError(t, err)

	// A cap of one gives each half-cap search a limit of zero, which
	// selects nothing.
	assert.Empty(t, mgr.GetSession("s1").RelevantMemories)
}

func TestRelevantMemoriesIdempotent(t *testing.T) {
	mgr := newTestManager(t)
	for i := 0; i < 6; i++ {
		mgr.store.AddMemory("paris museums", "", 0.5, []string{"travel"}, nil)
	}
	mgr.StartSession("s1")
	_, err := mgr.AddTurn("s1", "paris ideas", "Sure.", nil)
	require.NoError(t, err)

	context := mgr.GetSession("s1")
	first := make([]string, 0, len(context.RelevantMemories))
	for _, entry := range context.RelevantMemories {
		first = append(first, entry.EntryID)
	}

	mgr.updateRelevantMemories(context)
	second := make([]string, 0, len(context.RelevantMemories))
	for _, entry := range context.RelevantMemories {
		second = append(second, entry.EntryID)
	}

	assert.Equal(t, first, second)
}

func TestBuildChatContextOrdering(t *testing.T) {
	mgr := newTestManager(t)
	mgr.store.AddMemory("User prefers quiet hotels", EntryTypePreference, 0.9, []string{"preference"}, nil)

	mgr.StartSession("s1")
	_, err := mgr.AddTurn("s1", "find me a hotel", "How about the Grand?", nil)
	require.NoError(t, err)
	mgr.UpdateSessionSummary("s1", "user is hotel hunting")

	chat := mgr.BuildChatContext("s1", "something quieter please")
	require.Len(t, chat.Messages, 4)

	assert.Equal(t, genports.RoleSystem, chat.Messages[0].Role)
	assert.Equal(t, DefaultPersona, chat.Messages[0].Content)

	assert.Equal(t, genports.RoleSystem, chat.Messages[1].Role)
	assert.Contains(t, chat.Messages[1].Content, "User prefers quiet hotels")

	assert.Equal(t, genports.RoleSystem, chat.Messages[2].Role)
	assert.Contains(t, chat.Messages[2].Content, "user is hotel hunting")

	assert.Equal(t, genports.RoleUser, chat.Messages[3].Role)
	assert.Equal(t, "something quieter please", chat.Messages[3].Content)
}

func TestBuildChatContextFallsBackToRecentTurns(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")
	for _, pair := range [][2]string{
		{"q1", "a1"}, {"q2", "a2"}, {"q3", "a3"}, {"q4", "a4"},
	} {
		_, err := mgr.AddTurn("s1", pair[0], pair[1], nil)
		require.NoError(t, err)
	}

	chat := mgr.BuildChatContext("s1", "next question")

	var assistant []string
	for _, msg := range chat.Messages {
		if msg.Role == genports.RoleAssistant {
			assistant = append(assistant, msg.Content)
		}
	}
	assert.Equal(t, []string{"a2", "a3", "a4"}, assistant)
	assert.Equal(t, genports.RoleUser, chat.Messages[len(chat.Messages)-1].Role)
}

func TestBuildChatContextUnknownSession(t *testing.T) {
	mgr := newTestManager(t)

	chat := mgr.BuildChatContext("nobody", "hello")
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, DefaultPersona, chat.Messages[0].Content)
	assert.Equal(t, "hello", chat.Messages[1].Content)
}

func TestExtractUserPreferences(t *testing.T) {
	mgr := newTestManager(t)
	mgr.store.AddMemory("User preference: I want budget options", EntryTypePreference, 0.7, nil, nil)
	mgr.store.AddMemory("User preference: traveling with kids", EntryTypePreference, 0.7, nil, nil)
	mgr.store.AddMemory("luxury resort mentioned", EntryTypeGeneral, 0.7, nil, nil)

	mgr.StartSession("s1")
	prefs := mgr.ExtractUserPreferences("s1")

	assert.True(t, prefs["budget_conscious"])
	assert.True(t, prefs["family_travel"])
	assert.False(t, prefs["luxury_preference"], "non-preference entries are ignored")

	assert.Empty(t, mgr.ExtractUserPreferences("unknown"))
}

func TestSessionSummaryFor(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")
	_, err := mgr.AddTurn("s1", "I like islands", "Greece then.", nil)
	require.NoError(t, err)

	summary, ok := mgr.SessionSummaryFor("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", summary.SessionID)
	assert.Equal(t, 1, summary.TotalTurns)
	assert.GreaterOrEqual(t, summary.DurationMinutes, 0.0)

	_, ok = mgr.SessionSummaryFor("unknown")
	assert.False(t, ok)
}

func TestUpdateSessionSummary(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")
	_, err := mgr.AddTurn("s1", "hello", "hi", nil)
	require.NoError(t, err)

	mgr.UpdateSessionSummary("s1", "greeting exchanged")

	assert.Equal(t, "greeting exchanged", mgr.GetSession("s1").Summary)
	assert.Equal(t, "greeting exchanged", mgr.store.ConversationSummary("s1"))
}

func TestEndSessionKeepsDurableData(t *testing.T) {
	mgr := newTestManager(t)
	mgr.StartSession("s1")
	_, err := mgr.AddTurn("s1", "hello", "hi", nil)
	require.NoError(t, err)

	mgr.EndSession("s1")
	assert.Nil(t, mgr.GetSession("s1"))
	assert.Len(t, mgr.store.ConversationHistory("s1", 0), 1)
}
