package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel      = "gemini-2.5-flash"
	DefaultGeminiTitleModel = "gemini-2.5-flash-lite"
	DefaultOpenAIModel      = "gpt-4o-mini"

	titleMaxTokens = 50
)

// Options describe el proveedor y los modelos de respuesta y de titulos.
type Options struct {
	Provider        string
	GeminiAPIKey    string
	APIKey          string
	BaseURL         string
	Model           string
	TitleModel      string
	SystemPrompt    string
	MaxOutputTokens int
}

// NewClients construye el cliente de respuestas (con streaming) y el de titulos.
// Un modelo vacio toma el default del proveedor elegido.
func NewClients(ctx context.Context, opts Options, logger *zap.Logger) (StreamClient, LLMClient, error) {
	model := strings.TrimSpace(opts.Model)
	titleModel := strings.TrimSpace(opts.TitleModel)
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderGemini, "":
		if model == "" {
			model = DefaultGeminiModel
		}
		if titleModel == "" {
			titleModel = DefaultGeminiTitleModel
		}
		chat, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:          opts.GeminiAPIKey,
			Model:           model,
			SystemPrompt:    opts.SystemPrompt,
			MaxOutputTokens: opts.MaxOutputTokens,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		title, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:          opts.GeminiAPIKey,
			Model:           titleModel,
			MaxOutputTokens: titleMaxTokens,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return chat, title, nil
	case ProviderOpenAI:
		if model == "" {
			model = DefaultOpenAIModel
		}
		if titleModel == "" {
			titleModel = model
		}
		chat := NewHTTPClient(opts.BaseURL, opts.APIKey, model, opts.SystemPrompt, opts.MaxOutputTokens, logger)
		title := NewHTTPClient(opts.BaseURL, opts.APIKey, titleModel, "", titleMaxTokens, logger)
		return chat, title, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
