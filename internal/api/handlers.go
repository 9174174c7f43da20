package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/teamroom/teamroom/internal/auth"
	"github.com/teamroom/teamroom/internal/core"
	"github.com/teamroom/teamroom/internal/store"
)

type APIHandler struct {
	service      *core.ConversationService
	jwtSecret    string
	defaultModel string
	log          zerolog.Logger
}

func NewAPIHandler(service *core.ConversationService, jwtSecret, defaultModel string, log zerolog.Logger) *APIHandler {
	return &APIHandler{
		service:      service,
		jwtSecret:    jwtSecret,
		defaultModel: defaultModel,
		log:          log.With().Str("component", "api").Logger(),
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		email, err := auth.ValidateJWT(h.jwtSecret, tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.service.GetUserByEmail(email)
		if err != nil {
			h.log.Error().Str("email", email).Err(err).Msg("failed to resolve user from token")
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorID(r *http.Request) *int64 {
	if id, ok := r.Context().Value("userID").(int64); ok {
		return &id
	}
	return nil
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error().Str("email", req.Email).Err(err).Msg("failed to hash password")
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.service.CreateUser(req.Email, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			http.Error(w, "User already exists", http.StatusConflict)
			return
		}
		h.log.Error().Str("email", req.Email).Err(err).Msg("failed to create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.service.GetUserByEmail(req.Email)
	if err != nil {
		h.log.Error().Str("email", req.Email).Err(err).Msg("failed to look up user")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(h.jwtSecret, user.Email)
	if err != nil {
		h.log.Error().Str("email", req.Email).Err(err).Msg("failed to generate token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.ListConversations(actorID(r))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list conversations")
		http.Error(w, "Failed to list conversations", http.StatusInternalServerError)
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	json.NewEncoder(w).Encode(convs)
}

type CreateConversationRequest struct {
	Title string `json:"title"`
}

func (h *APIHandler) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	conv, err := h.service.CreateConversation(req.Title, actorID(r))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create conversation")
		http.Error(w, "Failed to create conversation", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(conv)
}

func (h *APIHandler) DefaultConversationHandler(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.GetOrCreateDefaultConversation(actorID(r))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get default conversation")
		http.Error(w, "Failed to get default conversation", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(conv)
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := parseID(chi.URLParam(r, "conversationID"))

	messages, err := h.service.ListMessages(conversationID, actorID(r))
	if err != nil {
		h.log.Error().Int64("conversation_id", conversationID).Err(err).Msg("failed to list messages")
		http.Error(w, "Failed to list messages", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(messages)
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := parseID(chi.URLParam(r, "conversationID"))

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	messages, err := h.service.PostMessage(r.Context(), conversationID, actorID(r), req.Content)
	if err != nil {
		h.log.Error().Int64("conversation_id", conversationID).Err(err).Msg("failed to post message")
		http.Error(w, "Failed to post message", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(messages)
}

type ToggleAttachmentResponse struct {
	ConversationID int64 `json:"conversation_id"`
	BotID          int64 `json:"bot_id"`
	Attached       bool  `json:"attached"`
}

func (h *APIHandler) ToggleAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := parseID(chi.URLParam(r, "conversationID"))
	botID := parseID(chi.URLParam(r, "botID"))

	attached, err := h.service.ToggleAttachment(conversationID, botID, actorID(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Conversation or bot not found", http.StatusNotFound)
			return
		}
		h.log.Error().Int64("conversation_id", conversationID).Int64("bot_id", botID).
			Err(err).Msg("failed to toggle attachment")
		http.Error(w, "Failed to toggle attachment", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(ToggleAttachmentResponse{
		ConversationID: conversationID,
		BotID:          botID,
		Attached:       attached,
	})
}

func (h *APIHandler) ListBotsHandler(w http.ResponseWriter, r *http.Request) {
	bots, err := h.service.ListBots()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list bots")
		http.Error(w, "Failed to list bots", http.StatusInternalServerError)
		return
	}
	if bots == nil {
		bots = []store.Bot{}
	}
	json.NewEncoder(w).Encode(bots)
}

type CreateBotRequest struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	SystemPrompt string `json:"system_prompt"`
	ModelName    string `json:"model_name"`
}

func (h *APIHandler) CreateBotHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.SystemPrompt = strings.TrimSpace(req.SystemPrompt)
	if req.Name == "" || req.SystemPrompt == "" {
		http.Error(w, "Name and system prompt are required", http.StatusBadRequest)
		return
	}
	if req.Role = strings.TrimSpace(req.Role); req.Role == "" {
		req.Role = "custom"
	}
	if req.ModelName = strings.TrimSpace(req.ModelName); req.ModelName == "" {
		req.ModelName = h.defaultModel
	}

	bot, err := h.service.CreateBot(req.Name, req.Role, req.SystemPrompt, req.ModelName)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			http.Error(w, "A bot with that name already exists", http.StatusConflict)
			return
		}
		h.log.Error().Str("name", req.Name).Err(err).Msg("failed to create bot")
		http.Error(w, "Failed to create bot", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(bot)
}

type UpdateBotModelRequest struct {
	ModelName string `json:"model_name"`
}

func (h *APIHandler) UpdateBotModelHandler(w http.ResponseWriter, r *http.Request) {
	botID := parseID(chi.URLParam(r, "botID"))

	var req UpdateBotModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ModelName = strings.TrimSpace(req.ModelName); req.ModelName == "" {
		http.Error(w, "Model name is required", http.StatusBadRequest)
		return
	}

	bot, err := h.service.UpdateBotModel(botID, req.ModelName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Bot not found", http.StatusNotFound)
			return
		}
		h.log.Error().Int64("bot_id", botID).Err(err).Msg("failed to update bot model")
		http.Error(w, "Failed to update bot model", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(bot)
}

// parseID returns 0 for malformed path ids; downstream validation treats
// non-positive ids as unknown conversations.
func parseID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
