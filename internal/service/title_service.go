package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"chatline/internal/llm"
)

const (
	DefaultChatTitle      = "New Chat"
	DefaultChatNamePrompt = "Generate a concise, descriptive title for this chat based on the user's message. Keep it 3-6 words maximum."

	maxTitleRunes = 50
	minTitleRunes = 3
)

// TitleService genera el nombre de un chat a partir del primer mensaje.
// Nunca falla: ante cualquier error devuelve DefaultChatTitle.
type TitleService struct {
	client llm.LLMClient
	prompt string
	logger *zap.Logger
}

func NewTitleService(client llm.LLMClient, prompt string, logger *zap.Logger) *TitleService {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultChatNamePrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TitleService{client: client, prompt: prompt, logger: logger}
}

func (s *TitleService) GenerateTitle(ctx context.Context, firstMessage string) string {
	if s == nil || s.client == nil {
		return DefaultChatTitle
	}
	if strings.TrimSpace(firstMessage) == "" {
		return DefaultChatTitle
	}

	fullPrompt := s.prompt + "\n\nUser's first message: \"" + firstMessage + "\""
	raw, err := s.client.Generate(ctx, fullPrompt, nil)
	if err != nil {
		s.logger.Warn("chat title generation failed", zap.Error(err))
		return DefaultChatTitle
	}
	return cleanTitle(raw)
}

// cleanTitle quita comillas y fences, recorta a 50 caracteres y aplica el fallback.
func cleanTitle(raw string) string {
	title := cleanLLMResponse(raw)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.NewReplacer(`"`, "", `'`, "").Replace(title)
	title = strings.TrimSpace(title)

	if utf8.RuneCountInString(title) > maxTitleRunes {
		runes := []rune(title)
		title = string(runes[:maxTitleRunes-3]) + "..."
	}
	if utf8.RuneCountInString(title) < minTitleRunes {
		return DefaultChatTitle
	}
	return title
}
