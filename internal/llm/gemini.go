package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// geminiModels es el subconjunto de *genai.Models que usa GeminiClient.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type GeminiConfig struct {
	APIKey          string
	Model           string
	SystemPrompt    string
	MaxOutputTokens int
}

// GeminiClient implementa StreamClient sobre la API de Gemini.
type GeminiClient struct {
	models       geminiModels
	model        string
	systemPrompt string
	maxTokens    int32
	logger       *zap.Logger
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiClient(client.Models, cfg, logger), nil
}

func newGeminiClient(models geminiModels, cfg GeminiConfig, logger *zap.Logger) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		models:       models,
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    int32(cfg.MaxOutputTokens),
		logger:       logger,
	}
}

func (c *GeminiClient) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, buildContents(prompt, history), c.config())
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *GeminiClient) GenerateStream(ctx context.Context, prompt string, history []Turn) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		for resp, err := range c.models.GenerateContentStream(ctx, c.model, buildContents(prompt, history), c.config()) {
			if err != nil {
				c.logger.Warn("gemini stream failed", zap.Error(err), zap.String("model", c.model))
				errs <- fmt.Errorf("gemini stream: %w", err)
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case chunks <- text:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()

	return chunks, errs
}

func (c *GeminiClient) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if c.maxTokens > 0 {
		cfg.MaxOutputTokens = c.maxTokens
	}
	if c.systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.systemPrompt, genai.RoleUser)
	}
	return cfg
}

func buildContents(prompt string, history []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == TurnModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}
