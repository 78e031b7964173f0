package llm

import (
	"context"
	"errors"
)

const (
	TurnUser  = "user"
	TurnModel = "model"
)

var ErrEmptyResponse = errors.New("llm empty response")

// Turn es un mensaje previo que se envia como historial al modelo.
type Turn struct {
	Role string
	Text string
}

// LLMClient define la interfaz para generar respuestas con un LLM.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, history []Turn) (string, error)
}

// StreamClient genera la respuesta por fragmentos. El canal de errores recibe
// a lo sumo un error y ambos canales se cierran al terminar.
type StreamClient interface {
	LLMClient
	GenerateStream(ctx context.Context, prompt string, history []Turn) (<-chan string, <-chan error)
}
