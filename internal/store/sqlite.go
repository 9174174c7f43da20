package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

var (
	// ErrNotFound means the referenced conversation/bot/message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName means a bot with the same name already exists.
	ErrDuplicateName = errors.New("duplicate name")
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writes anyway, and a single connection keeps
	// in-memory databases stable across the pool.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS conversations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id INTEGER,
        title TEXT NOT NULL DEFAULT 'New conversation',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS bots (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT UNIQUE NOT NULL,
        role TEXT NOT NULL,
        system_prompt TEXT NOT NULL,
        model_name TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS conversation_bots (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        conversation_id INTEGER NOT NULL,
        bot_id INTEGER NOT NULL,
        UNIQUE (conversation_id, bot_id),
        FOREIGN KEY (conversation_id) REFERENCES conversations (id) ON DELETE CASCADE,
        FOREIGN KEY (bot_id) REFERENCES bots (id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        conversation_id INTEGER NOT NULL,
        bot_id INTEGER,
        sender_type TEXT NOT NULL CHECK (sender_type IN ('user', 'bot')),
        content TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (conversation_id) REFERENCES conversations (id),
        FOREIGN KEY (bot_id) REFERENCES bots (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// User methods

func (s *SQLiteStore) CreateUser(email, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (email, password_hash) VALUES (?, ?)", email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(id)
}

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, email, password_hash, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Bot methods

func (s *SQLiteStore) CreateBot(name, role, systemPrompt, modelName string) (*Bot, error) {
	res, err := s.db.Exec(
		"INSERT INTO bots (name, role, system_prompt, model_name) VALUES (?, ?, ?, ?)",
		name, role, systemPrompt, modelName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("bot %q: %w", name, ErrDuplicateName)
		}
		return nil, fmt.Errorf("failed to insert bot: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetBotByID(id)
}

func (s *SQLiteStore) GetBotByID(id int64) (*Bot, error) {
	var bot Bot
	err := s.db.QueryRow("SELECT id, name, role, system_prompt, model_name FROM bots WHERE id = ?", id).
		Scan(&bot.ID, &bot.Name, &bot.Role, &bot.SystemPrompt, &bot.ModelName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("bot %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	return &bot, nil
}

func (s *SQLiteStore) ListBots() ([]Bot, error) {
	rows, err := s.db.Query("SELECT id, name, role, system_prompt, model_name FROM bots ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query bots: %w", err)
	}
	defer rows.Close()

	var bots []Bot
	for rows.Next() {
		var bot Bot
		if err := rows.Scan(&bot.ID, &bot.Name, &bot.Role, &bot.SystemPrompt, &bot.ModelName); err != nil {
			return nil, fmt.Errorf("failed to scan bot row: %w", err)
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

func (s *SQLiteStore) UpdateBotModel(id int64, modelName string) (*Bot, error) {
	res, err := s.db.Exec("UPDATE bots SET model_name = ? WHERE id = ?", modelName, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update bot model: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, fmt.Errorf("bot %d: %w", id, ErrNotFound)
	}
	return s.GetBotByID(id)
}

// SeedBots inserts the given bots, silently skipping any whose name already
// exists. Safe to call on every startup. Returns how many rows were inserted.
func (s *SQLiteStore) SeedBots(bots []Bot) (int, error) {
	stmt, err := s.db.Prepare("INSERT OR IGNORE INTO bots (name, role, system_prompt, model_name) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare bot seed insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, bot := range bots {
		res, err := stmt.Exec(bot.Name, bot.Role, bot.SystemPrompt, bot.ModelName)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed bot %q: %w", bot.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// Conversation methods

func (s *SQLiteStore) CreateConversation(title string, userID *int64) (*Conversation, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO conversations (user_id, title, created_at) VALUES (?, ?, ?)",
		userID, title, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Conversation{ID: id, UserID: userID, Title: title, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetConversationByID(id int64) (*Conversation, error) {
	var conv Conversation
	var userID sql.NullInt64
	err := s.db.QueryRow("SELECT id, user_id, title, created_at FROM conversations WHERE id = ?", id).
		Scan(&conv.ID, &userID, &conv.Title, &conv.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if userID.Valid {
		conv.UserID = &userID.Int64
	}
	return &conv, nil
}

// ListConversations returns the conversations visible to the given owner:
// those it owns plus all unowned ones, newest first. A nil owner sees only
// unowned conversations.
func (s *SQLiteStore) ListConversations(userID *int64) ([]Conversation, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if userID != nil {
		rows, err = s.db.Query(
			"SELECT id, user_id, title, created_at FROM conversations WHERE user_id = ? OR user_id IS NULL ORDER BY created_at DESC, id DESC",
			*userID,
		)
	} else {
		rows, err = s.db.Query(
			"SELECT id, user_id, title, created_at FROM conversations WHERE user_id IS NULL ORDER BY created_at DESC, id DESC",
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var conv Conversation
		var owner sql.NullInt64
		if err := rows.Scan(&conv.ID, &owner, &conv.Title, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		if owner.Valid {
			conv.UserID = &owner.Int64
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// Attachment methods

func (s *SQLiteStore) CountAttachments(conversationID int64) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM conversation_bots WHERE conversation_id = ?", conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attachments: %w", err)
	}
	return count, nil
}

// AttachAllBots links every known bot to the conversation. Existing links
// are left alone, so repeated calls are harmless.
func (s *SQLiteStore) AttachAllBots(conversationID int64) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO conversation_bots (conversation_id, bot_id) SELECT ?, id FROM bots",
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach all bots: %w", err)
	}
	return nil
}

// ToggleAttachment flips the bot's attachment in the conversation and reports
// the resulting state: true when the bot is now attached.
func (s *SQLiteStore) ToggleAttachment(conversationID, botID int64) (bool, error) {
	res, err := s.db.Exec(
		"DELETE FROM conversation_bots WHERE conversation_id = ? AND bot_id = ?",
		conversationID, botID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to detach bot: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return false, nil // was attached, now removed
	}
	_, err = s.db.Exec(
		"INSERT INTO conversation_bots (conversation_id, bot_id) VALUES (?, ?)",
		conversationID, botID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to attach bot: %w", err)
	}
	return true, nil
}

// ListAttachedBots returns the bots attached to the conversation in
// attachment order, which keeps router fallback selection deterministic.
func (s *SQLiteStore) ListAttachedBots(conversationID int64) ([]Bot, error) {
	rows, err := s.db.Query(`
        SELECT b.id, b.name, b.role, b.system_prompt, b.model_name
        FROM conversation_bots cb
        JOIN bots b ON b.id = cb.bot_id
        WHERE cb.conversation_id = ?
        ORDER BY cb.id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attached bots: %w", err)
	}
	defer rows.Close()

	var bots []Bot
	for rows.Next() {
		var bot Bot
		if err := rows.Scan(&bot.ID, &bot.Name, &bot.Role, &bot.SystemPrompt, &bot.ModelName); err != nil {
			return nil, fmt.Errorf("failed to scan attached bot row: %w", err)
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

// Message methods

func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.CreatedAt = time.Now().UTC()

	res, err := s.db.Exec(
		"INSERT INTO messages (conversation_id, bot_id, sender_type, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ConversationID, msg.BotID, msg.SenderType, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	return nil
}

// GetMessagesByConversation returns the full transcript in creation order,
// with the autoincrement id breaking timestamp ties.
func (s *SQLiteStore) GetMessagesByConversation(conversationID int64) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT id, conversation_id, bot_id, sender_type, content, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at, id",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var botID sql.NullInt64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &botID, &msg.SenderType, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if botID.Valid {
			msg.BotID = &botID.Int64
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
