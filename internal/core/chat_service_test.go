package core

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamroom/teamroom/internal/store"
)

type inferenceCall struct {
	Model        string
	SystemPrompt string
	UserMessage  string
}

// fakeInference records calls and replies with a fixed Reply, mirroring the
// swallow-all contract of the real providers.
type fakeInference struct {
	reply Reply
	calls []inferenceCall
}

func (f *fakeInference) Generate(_ context.Context, model, systemPrompt, userMessage string) Reply {
	f.calls = append(f.calls, inferenceCall{Model: model, SystemPrompt: systemPrompt, UserMessage: userMessage})
	return f.reply
}

func newTestService(t *testing.T, reply Reply) (*ConversationService, *store.SQLiteStore, *fakeInference) {
	t.Helper()
	dbStore, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	fake := &fakeInference{reply: reply}
	svc := NewConversationService(dbStore, NewRouterBot(), fake, zerolog.Nop())
	return svc, dbStore, fake
}

func seedBot(t *testing.T, dbStore *store.SQLiteStore, name, role string) *store.Bot {
	t.Helper()
	bot, err := dbStore.CreateBot(name, role, "You are "+name+".", "llama3")
	require.NoError(t, err)
	return bot
}

func TestPostMessageRoutesToKeywordBot(t *testing.T) {
	svc, dbStore, fake := newTestService(t, Reply{Text: "happy to help"})
	devops := seedBot(t, dbStore, "Sky", "devops")
	seedBot(t, dbStore, "Jamie", "frontend_engineer")

	conv, err := svc.CreateConversation("General", nil)
	require.NoError(t, err)

	transcript, err := svc.PostMessage(context.Background(), conv.ID, nil, "please deploy the new build")
	require.NoError(t, err)

	require.Len(t, transcript, 2)
	assert.Equal(t, store.SenderUser, transcript[0].SenderType)
	assert.Equal(t, "please deploy the new build", transcript[0].Content)
	assert.Nil(t, transcript[0].BotID)

	assert.Equal(t, store.SenderBot, transcript[1].SenderType)
	require.NotNil(t, transcript[1].BotID)
	assert.Equal(t, devops.ID, *transcript[1].BotID)
	assert.Equal(t, "happy to help", transcript[1].Content)

	require.Len(t, fake.calls, 1)
	assert.Equal(t, devops.ModelName, fake.calls[0].Model)
	assert.Equal(t, devops.SystemPrompt, fake.calls[0].SystemPrompt)
}

func TestPostMessageFallbackPicksFirstAttached(t *testing.T) {
	svc, dbStore, _ := newTestService(t, Reply{Text: "sure"})
	code := seedBot(t, dbStore, "CodeBot", "code")
	seedBot(t, dbStore, "EmailBot", "email")

	conv, err := svc.CreateConversation("Help", nil)
	require.NoError(t, err)

	// Neither role has keyword table entries, so the router falls back to
	// the first attached bot.
	transcript, err := svc.PostMessage(context.Background(), conv.ID, nil, "there's a bug in my function")
	require.NoError(t, err)

	require.Len(t, transcript, 2)
	require.NotNil(t, transcript[1].BotID)
	assert.Equal(t, code.ID, *transcript[1].BotID)
}

func TestPostMessageUserMessageSurvivesInferenceFailure(t *testing.T) {
	svc, dbStore, _ := newTestService(t, Reply{Text: "Ollama error: request timed out after 5m0s", Failed: true})
	seedBot(t, dbStore, "Sky", "devops")

	conv, err := svc.CreateConversation("General", nil)
	require.NoError(t, err)

	transcript, err := svc.PostMessage(context.Background(), conv.ID, nil, "deploy it")
	require.NoError(t, err)

	// Error text is stored as an ordinary bot reply, after the user message.
	require.Len(t, transcript, 2)
	assert.Equal(t, store.SenderUser, transcript[0].SenderType)
	assert.Equal(t, store.SenderBot, transcript[1].SenderType)
	assert.Contains(t, transcript[1].Content, "timed out")
}

func TestPostMessageAutoAttachesAllBots(t *testing.T) {
	svc, dbStore, _ := newTestService(t, Reply{Text: "ok"})
	seedBot(t, dbStore, "Avery", "solution_architect")
	seedBot(t, dbStore, "Blake", "backend_engineer")
	seedBot(t, dbStore, "Jamie", "frontend_engineer")

	conv, err := svc.CreateConversation("Fresh", nil)
	require.NoError(t, err)

	count, err := dbStore.CountAttachments(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = svc.PostMessage(context.Background(), conv.ID, nil, "hello team")
	require.NoError(t, err)

	count, err = dbStore.CountAttachments(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestListMessagesAutoAttachesLikeMessaging(t *testing.T) {
	svc, dbStore, _ := newTestService(t, Reply{Text: "ok"})
	seedBot(t, dbStore, "Avery", "solution_architect")
	seedBot(t, dbStore, "Blake", "backend_engineer")
	seedBot(t, dbStore, "Jamie", "frontend_engineer")

	conv, err := svc.CreateConversation("Fresh", nil)
	require.NoError(t, err)

	messages, err := svc.ListMessages(conv.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// The read path produces the same attachment state as the message path.
	count, err := dbStore.CountAttachments(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPostMessageOrchestratorNeverReplies(t *testing.T) {
	svc, dbStore, fake := newTestService(t, Reply{Text: "ok"})
	seedBot(t, dbStore, "Atlas", store.OrchestratorRole)
	devops := seedBot(t, dbStore, "Sky", "devops")

	conv, err := svc.CreateConversation("General", nil)
	require.NoError(t, err)

	transcript, err := svc.PostMessage(context.Background(), conv.ID, nil, "no keywords here at all, hi")
	require.NoError(t, err)

	require.Len(t, transcript, 2)
	require.NotNil(t, transcript[1].BotID)
	assert.Equal(t, devops.ID, *transcript[1].BotID)
	require.Len(t, fake.calls, 1)
}

func TestPostMessageNoBotsYieldsSyntheticNotice(t *testing.T) {
	svc, _, fake := newTestService(t, Reply{Text: "ok"})

	conv, err := svc.CreateConversation("Empty registry", nil)
	require.NoError(t, err)

	transcript, err := svc.PostMessage(context.Background(), conv.ID, nil, "anyone there?")
	require.NoError(t, err)

	require.Len(t, transcript, 2)
	assert.Equal(t, store.SenderBot, transcript[1].SenderType)
	assert.Nil(t, transcript[1].BotID)
	assert.Equal(t, NoBotAttachedMessage, transcript[1].Content)
	assert.Empty(t, fake.calls)
}

func TestPostMessageEmptyContentIsNoOp(t *testing.T) {
	svc, dbStore, fake := newTestService(t, Reply{Text: "ok"})
	seedBot(t, dbStore, "Sky", "devops")

	conv, err := svc.CreateConversation("General", nil)
	require.NoError(t, err)

	before, err := svc.PostMessage(context.Background(), conv.ID, nil, "deploy it")
	require.NoError(t, err)
	require.Len(t, before, 2)
	callsBefore := len(fake.calls)

	for _, blank := range []string{"", "   ", "\n\t "} {
		after, err := svc.PostMessage(context.Background(), conv.ID, nil, blank)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	}
	assert.Equal(t, callsBefore, len(fake.calls))
}

func TestPostMessageInvalidConversation(t *testing.T) {
	svc, dbStore, fake := newTestService(t, Reply{Text: "ok"})
	seedBot(t, dbStore, "Sky", "devops")

	for _, id := range []int64{0, -3, 9999} {
		transcript, err := svc.PostMessage(context.Background(), id, nil, "hello?")
		require.NoError(t, err)
		assert.Empty(t, transcript)
	}
	assert.Empty(t, fake.calls)
}

func TestPostMessageOwnershipMismatchIsSilent(t *testing.T) {
	svc, dbStore, fake := newTestService(t, Reply{Text: "ok"})
	seedBot(t, dbStore, "Sky", "devops")

	owner, err := dbStore.CreateUser("owner@example.com", "hash")
	require.NoError(t, err)
	stranger, err := dbStore.CreateUser("stranger@example.com", "hash")
	require.NoError(t, err)

	conv, err := svc.CreateConversation("Private", &owner.ID)
	require.NoError(t, err)

	transcript, err := svc.PostMessage(context.Background(), conv.ID, &stranger.ID, "let me in")
	require.NoError(t, err)
	assert.Empty(t, transcript)
	assert.Empty(t, fake.calls)

	// The owner still has an untouched conversation.
	messages, err := svc.ListMessages(conv.ID, &owner.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestUnownedConversationVisibleToAnyIdentity(t *testing.T) {
	svc, dbStore, _ := newTestService(t, Reply{Text: "ok"})
	seedBot(t, dbStore, "Sky", "devops")

	user, err := dbStore.CreateUser("someone@example.com", "hash")
	require.NoError(t, err)

	conv, err := svc.CreateConversation("Shared", nil)
	require.NoError(t, err)

	transcript, err := svc.PostMessage(context.Background(), conv.ID, &user.ID, "deploy please")
	require.NoError(t, err)
	assert.Len(t, transcript, 2)
}

func TestGetOrCreateDefaultConversation(t *testing.T) {
	svc, _, _ := newTestService(t, Reply{Text: "ok"})

	created, err := svc.GetOrCreateDefaultConversation(nil)
	require.NoError(t, err)
	assert.Equal(t, "General", created.Title)

	again, err := svc.GetOrCreateDefaultConversation(nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
}

func TestToggleAttachment(t *testing.T) {
	svc, dbStore, _ := newTestService(t, Reply{Text: "ok"})
	bot := seedBot(t, dbStore, "Sky", "devops")

	conv, err := svc.CreateConversation("General", nil)
	require.NoError(t, err)

	attached, err := svc.ToggleAttachment(conv.ID, bot.ID, nil)
	require.NoError(t, err)
	assert.True(t, attached)

	attached, err = svc.ToggleAttachment(conv.ID, bot.ID, nil)
	require.NoError(t, err)
	assert.False(t, attached)

	_, err = svc.ToggleAttachment(conv.ID, 424242, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
