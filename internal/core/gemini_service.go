package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// GeminiService is the alternate inference provider, selected with
// INFERENCE_PROVIDER=gemini. It honors the same swallow-all contract as the
// Ollama provider: every failure mode becomes a Reply, never an error.
type GeminiService struct {
	client *genai.Client
	log    zerolog.Logger
}

func NewGeminiService(apiKey string, log zerolog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiService{
		client: client,
		log:    log.With().Str("component", "gemini").Logger(),
	}, nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.log.Warn().Err(err).Msg("error closing GenAI client")
		}
	}
}

func (s *GeminiService) Generate(ctx context.Context, model, systemPrompt, userMessage string) Reply {
	gm := s.client.GenerativeModel(model)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(userMessage))
	if err != nil {
		s.log.Warn().Str("model", model).Err(err).Msg("gemini request failed")
		return Reply{Text: fmt.Sprintf("Gemini error: %v", err), Failed: true}
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		s.log.Warn().Str("model", model).Msg("gemini response had no candidates")
		return Reply{Text: "Gemini error: the backend returned an empty response.", Failed: true}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	if text.Len() == 0 {
		s.log.Warn().Str("model", model).Msg("gemini response had no text parts")
		return Reply{Text: "Gemini error: the backend returned a non-text response.", Failed: true}
	}

	return Reply{Text: strings.TrimSpace(text.String())}
}
