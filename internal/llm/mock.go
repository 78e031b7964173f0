package llm

import (
	"context"
	"strings"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Err      error

	mu          sync.Mutex
	LastPrompt  string
	LastHistory []Turn
	Calls       int
}

func (m *MockClient) Generate(ctx context.Context, prompt string, history []Turn) (string, error) {
	m.mu.Lock()
	m.LastPrompt = prompt
	m.LastHistory = history
	m.Calls++
	m.mu.Unlock()
	return m.Response, m.Err
}

// GenerateStream entrega Response palabra por palabra.
func (m *MockClient) GenerateStream(ctx context.Context, prompt string, history []Turn) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		resp, err := m.Generate(ctx, prompt, history)
		if err != nil {
			errs <- err
			return
		}
		for _, word := range strings.SplitAfter(resp, " ") {
			if word == "" {
				continue
			}
			select {
			case chunks <- word:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
	}()
	return chunks, errs
}
