package store

import "time"

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// OrchestratorRole is reserved for coordination framing and never produces
// user-visible replies.
const OrchestratorRole = "orchestrator"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

type Conversation struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"` // Nullable: unowned conversations are visible to everyone
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Bot struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	SystemPrompt string `json:"system_prompt"`
	ModelName    string `json:"model_name"`
}

// ConversationBot links a bot to a conversation; its presence makes the bot
// eligible to respond there.
type ConversationBot struct {
	ID             int64 `json:"id"`
	ConversationID int64 `json:"conversation_id"`
	BotID          int64 `json:"bot_id"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	BotID          *int64    `json:"bot_id"` // nil when the sender is the human user
	SenderType     string    `json:"sender_type"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
