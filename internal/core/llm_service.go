package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reply is what an inference provider hands back to the orchestration layer.
// The call never fails from the caller's perspective: on any backend problem
// Text carries a human-readable description and Failed is set so the service
// can log it. Either way the text ends up in the transcript.
type Reply struct {
	Text   string
	Failed bool
}

// InferenceService generates one reply for a user message under a bot's
// system prompt and target model.
type InferenceService interface {
	Generate(ctx context.Context, model, systemPrompt, userMessage string) Reply
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
}

// OllamaService talks to an Ollama server's /api/chat endpoint. One blocking
// request per call; the timeout is generous because the first request after
// startup also loads the model.
type OllamaService struct {
	client  *resty.Client
	timeout time.Duration
	log     zerolog.Logger
}

func NewOllamaService(host string, timeout time.Duration, log zerolog.Logger) *OllamaService {
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &OllamaService{
		client:  client,
		timeout: timeout,
		log:     log.With().Str("component", "ollama").Logger(),
	}
}

func (s *OllamaService) Generate(ctx context.Context, model, systemPrompt, userMessage string) Reply {
	callID := uuid.NewString()
	start := time.Now()

	var result ollamaChatResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(ollamaChatRequest{
			Model: model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userMessage},
			},
			Stream: false,
		}).
		SetResult(&result).
		Post("/api/chat")

	if err != nil {
		if isTimeout(err) {
			s.log.Warn().Str("call_id", callID).Str("model", model).
				Dur("elapsed", time.Since(start)).Msg("ollama request timed out")
			return Reply{
				Text:   fmt.Sprintf("Ollama error: request timed out after %s (model %s may still be loading)", s.timeout, model),
				Failed: true,
			}
		}
		s.log.Warn().Str("call_id", callID).Str("model", model).Err(err).Msg("ollama request failed")
		return Reply{Text: fmt.Sprintf("Ollama error: %v", err), Failed: true}
	}

	if resp.IsError() {
		s.log.Warn().Str("call_id", callID).Str("model", model).
			Int("status", resp.StatusCode()).Msg("ollama returned error status")
		return Reply{
			Text:   fmt.Sprintf("Ollama error: backend returned status %d: %s", resp.StatusCode(), resp.String()),
			Failed: true,
		}
	}

	text := strings.TrimSpace(result.Message.Content)
	if text == "" {
		s.log.Warn().Str("call_id", callID).Str("model", model).Msg("ollama response had no message content")
		return Reply{Text: "Sorry, I could not parse the Ollama response.", Failed: true}
	}

	s.log.Debug().Str("call_id", callID).Str("model", model).
		Dur("elapsed", time.Since(start)).Int("chars", len(text)).Msg("ollama reply generated")
	return Reply{Text: text}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return os.IsTimeout(err)
}
