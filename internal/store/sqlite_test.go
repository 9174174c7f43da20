package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSeedBotsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	roster := DefaultBots("llama3")

	inserted, err := s.SeedBots(roster)
	require.NoError(t, err)
	assert.Equal(t, len(roster), inserted)

	// Re-running the seed must not create duplicates and must not fail.
	inserted, err = s.SeedBots(roster)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	bots, err := s.ListBots()
	require.NoError(t, err)
	assert.Len(t, bots, len(roster))

	seen := make(map[string]int)
	for _, bot := range bots {
		seen[bot.Name]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "bot %q seeded more than once", name)
	}
}

func TestSeedBotsSkipsExistingNames(t *testing.T) {
	s := newTestStore(t)

	custom, err := s.CreateBot("Sky (DevOps)", "custom", "My own Sky.", "mistral")
	require.NoError(t, err)

	inserted, err := s.SeedBots(DefaultBots("llama3"))
	require.NoError(t, err)
	assert.Equal(t, len(DefaultBots("llama3"))-1, inserted)

	// The pre-existing bot keeps its own configuration.
	got, err := s.GetBotByID(custom.ID)
	require.NoError(t, err)
	assert.Equal(t, "mistral", got.ModelName)
	assert.Equal(t, "My own Sky.", got.SystemPrompt)
}

func TestCreateBotDuplicateName(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateBot("CodeBot", "code", "You read code.", "llama3")
	require.NoError(t, err)

	_, err = s.CreateBot("CodeBot", "other", "Different prompt.", "mistral")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestUpdateBotModel(t *testing.T) {
	s := newTestStore(t)

	bot, err := s.CreateBot("CodeBot", "code", "You read code.", "llama3")
	require.NoError(t, err)

	updated, err := s.UpdateBotModel(bot.ID, "mistral")
	require.NoError(t, err)
	assert.Equal(t, "mistral", updated.ModelName)

	_, err = s.UpdateBotModel(424242, "mistral")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBotsOrderedByName(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"Zed", "Ada", "Mia"} {
		_, err := s.CreateBot(name, "custom", "prompt", "llama3")
		require.NoError(t, err)
	}

	bots, err := s.ListBots()
	require.NoError(t, err)
	require.Len(t, bots, 3)
	assert.Equal(t, []string{"Ada", "Mia", "Zed"}, []string{bots[0].Name, bots[1].Name, bots[2].Name})
}

func TestMessageOrderingByCreationThenID(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.CreateConversation("General", nil)
	require.NoError(t, err)

	contents := []string{"first", "second", "third", "fourth"}
	for _, content := range contents {
		msg := Message{ConversationID: conv.ID, SenderType: SenderUser, Content: content}
		require.NoError(t, s.CreateMessage(&msg))
	}

	messages, err := s.GetMessagesByConversation(conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, len(contents))
	for i, content := range contents {
		assert.Equal(t, content, messages[i].Content)
	}
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
		assert.Greater(t, messages[i].ID, messages[i-1].ID)
	}
}

func TestListConversationsVisibility(t *testing.T) {
	s := newTestStore(t)

	alice, err := s.CreateUser("alice@example.com", "hash")
	require.NoError(t, err)
	bob, err := s.CreateUser("bob@example.com", "hash")
	require.NoError(t, err)

	_, err = s.CreateConversation("Alice's", &alice.ID)
	require.NoError(t, err)
	_, err = s.CreateConversation("Bob's", &bob.ID)
	require.NoError(t, err)
	shared, err := s.CreateConversation("Shared", nil)
	require.NoError(t, err)

	visible, err := s.ListConversations(&alice.ID)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	titles := []string{visible[0].Title, visible[1].Title}
	assert.Contains(t, titles, "Alice's")
	assert.Contains(t, titles, "Shared")

	anonymous, err := s.ListConversations(nil)
	require.NoError(t, err)
	require.Len(t, anonymous, 1)
	assert.Equal(t, shared.ID, anonymous[0].ID)
}

func TestListConversationsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	older, err := s.CreateConversation("older", nil)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, err := s.CreateConversation("newer", nil)
	require.NoError(t, err)

	convs, err := s.ListConversations(nil)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, newer.ID, convs[0].ID)
	assert.Equal(t, older.ID, convs[1].ID)
}

func TestAttachAllBotsAndToggle(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.CreateConversation("General", nil)
	require.NoError(t, err)

	bot1, err := s.CreateBot("One", "code", "p", "llama3")
	require.NoError(t, err)
	bot2, err := s.CreateBot("Two", "email", "p", "llama3")
	require.NoError(t, err)

	require.NoError(t, s.AttachAllBots(conv.ID))
	count, err := s.CountAttachments(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Repeat attaches nothing new.
	require.NoError(t, s.AttachAllBots(conv.ID))
	count, err = s.CountAttachments(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	attached, err := s.ToggleAttachment(conv.ID, bot1.ID)
	require.NoError(t, err)
	assert.False(t, attached)

	bots, err := s.ListAttachedBots(conv.ID)
	require.NoError(t, err)
	require.Len(t, bots, 1)
	assert.Equal(t, bot2.ID, bots[0].ID)

	attached, err = s.ToggleAttachment(conv.ID, bot1.ID)
	require.NoError(t, err)
	assert.True(t, attached)
}

func TestGetConversationByIDMissing(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.GetConversationByID(12345)
	require.NoError(t, err)
	assert.Nil(t, conv)
}
