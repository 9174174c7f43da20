package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/teamroom/teamroom/internal/store"
)

// NoBotAttachedMessage is persisted as a synthetic bot message when the
// router has no candidates to hand a message to.
const NoBotAttachedMessage = "[Router] No bot attached to this conversation."

// ConversationService orchestrates the message flow: persist the user
// message, route it to bots, invoke inference per bot, persist the replies,
// and hand back the transcript. Malformed input and unauthorized access
// degrade to no-ops, never errors.
type ConversationService struct {
	dbStore   *store.SQLiteStore
	router    *RouterBot
	inference InferenceService
	log       zerolog.Logger
}

func NewConversationService(db *store.SQLiteStore, router *RouterBot, inference InferenceService, log zerolog.Logger) *ConversationService {
	return &ConversationService{
		dbStore:   db,
		router:    router,
		inference: inference,
		log:       log.With().Str("component", "conversation").Logger(),
	}
}

func (s *ConversationService) ListConversations(ownerID *int64) ([]store.Conversation, error) {
	return s.dbStore.ListConversations(ownerID)
}

// GetOrCreateDefaultConversation returns the newest conversation visible to
// the owner, creating a "General" one when none exists.
func (s *ConversationService) GetOrCreateDefaultConversation(ownerID *int64) (*store.Conversation, error) {
	convs, err := s.dbStore.ListConversations(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(convs) > 0 {
		return &convs[0], nil
	}
	return s.dbStore.CreateConversation("General", ownerID)
}

func (s *ConversationService) CreateConversation(title string, ownerID *int64) (*store.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New conversation"
	}
	return s.dbStore.CreateConversation(title, ownerID)
}

// ListMessages returns the transcript in creation order. Unknown
// conversations and ownership mismatches yield an empty transcript rather
// than an error. Viewing a conversation triggers the default attachment
// policy, so the first read and the first post produce identical state.
func (s *ConversationService) ListMessages(conversationID int64, actorID *int64) ([]store.Message, error) {
	conv, err := s.loadAccessible(conversationID, actorID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return []store.Message{}, nil
	}
	if err := s.EnsureDefaultAttachments(conv.ID); err != nil {
		return nil, err
	}
	return s.transcript(conv.ID)
}

// PostMessage runs one inbound user message end-to-end and returns the full
// transcript after all replies are persisted. The user message commit is
// durable before any inference call begins, so a transcript exists even when
// every backend call fails.
func (s *ConversationService) PostMessage(ctx context.Context, conversationID int64, actorID *int64, content string) ([]store.Message, error) {
	conv, err := s.loadAccessible(conversationID, actorID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return []store.Message{}, nil
	}

	content = strings.TrimSpace(content)
	if content == "" {
		// Empty message: nothing to persist, just re-read the transcript.
		return s.transcript(conv.ID)
	}

	userMsg := store.Message{
		ConversationID: conv.ID,
		SenderType:     store.SenderUser,
		Content:        content,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	if err := s.EnsureDefaultAttachments(conv.ID); err != nil {
		return nil, err
	}

	attached, err := s.dbStore.ListAttachedBots(conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attached bots: %w", err)
	}
	candidates := make([]store.Bot, 0, len(attached))
	for _, bot := range attached {
		if bot.Role != store.OrchestratorRole {
			candidates = append(candidates, bot)
		}
	}

	selected := s.router.ChooseBots(content, candidates)
	if len(selected) == 0 {
		synthetic := store.Message{
			ConversationID: conv.ID,
			SenderType:     store.SenderBot,
			Content:        NoBotAttachedMessage,
		}
		if err := s.dbStore.CreateMessage(&synthetic); err != nil {
			return nil, fmt.Errorf("failed to store router notice: %w", err)
		}
		return s.transcript(conv.ID)
	}

	// Bots answer one after another in router order; each reply is fully
	// persisted before the next call, so partial progress survives.
	for _, bot := range selected {
		reply := s.inference.Generate(ctx, bot.ModelName, bot.SystemPrompt, content)
		if reply.Failed {
			s.log.Warn().Int64("conversation_id", conv.ID).Str("bot", bot.Name).
				Str("model", bot.ModelName).Msg("inference failed, storing error text as reply")
		}
		botID := bot.ID
		botMsg := store.Message{
			ConversationID: conv.ID,
			BotID:          &botID,
			SenderType:     store.SenderBot,
			Content:        reply.Text,
		}
		if err := s.dbStore.CreateMessage(&botMsg); err != nil {
			return nil, fmt.Errorf("failed to store reply from %s: %w", bot.Name, err)
		}
	}

	return s.transcript(conv.ID)
}

// EnsureDefaultAttachments attaches every known bot to a conversation that
// has no attachments yet. Idempotent; invoked on both the read and the
// message path.
func (s *ConversationService) EnsureDefaultAttachments(conversationID int64) error {
	count, err := s.dbStore.CountAttachments(conversationID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := s.dbStore.AttachAllBots(conversationID); err != nil {
		return err
	}
	s.log.Debug().Int64("conversation_id", conversationID).Msg("attached all bots to fresh conversation")
	return nil
}

// ToggleAttachment flips a bot's attachment and reports whether it is now
// attached. The conversation must exist and be accessible to the actor.
func (s *ConversationService) ToggleAttachment(conversationID, botID int64, actorID *int64) (bool, error) {
	conv, err := s.loadAccessible(conversationID, actorID)
	if err != nil {
		return false, err
	}
	if conv == nil {
		return false, fmt.Errorf("conversation %d: %w", conversationID, store.ErrNotFound)
	}
	if _, err := s.dbStore.GetBotByID(botID); err != nil {
		return false, err
	}
	return s.dbStore.ToggleAttachment(conversationID, botID)
}

// User operations, delegated for the auth layer

func (s *ConversationService) GetUserByEmail(email string) (*store.User, error) {
	return s.dbStore.GetUserByEmail(email)
}

func (s *ConversationService) CreateUser(email, passwordHash string) (*store.User, error) {
	return s.dbStore.CreateUser(email, passwordHash)
}

// Persona registry operations

func (s *ConversationService) ListBots() ([]store.Bot, error) {
	return s.dbStore.ListBots()
}

func (s *ConversationService) CreateBot(name, role, systemPrompt, modelName string) (*store.Bot, error) {
	return s.dbStore.CreateBot(name, role, systemPrompt, modelName)
}

func (s *ConversationService) UpdateBotModel(botID int64, modelName string) (*store.Bot, error) {
	return s.dbStore.UpdateBotModel(botID, modelName)
}

// loadAccessible resolves a conversation id to a conversation the actor may
// use. Returns (nil, nil) for malformed ids, unknown conversations, and
// ownership mismatches: all three are silent no-ops by design.
func (s *ConversationService) loadAccessible(conversationID int64, actorID *int64) (*store.Conversation, error) {
	if conversationID <= 0 {
		return nil, nil
	}
	conv, err := s.dbStore.GetConversationByID(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil {
		return nil, nil
	}
	if conv.UserID != nil && (actorID == nil || *conv.UserID != *actorID) {
		s.log.Debug().Int64("conversation_id", conversationID).Msg("ownership mismatch, returning empty transcript")
		return nil, nil
	}
	return conv, nil
}

func (s *ConversationService) transcript(conversationID int64) ([]store.Message, error) {
	messages, err := s.dbStore.GetMessagesByConversation(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	if messages == nil {
		messages = []store.Message{}
	}
	return messages, nil
}
