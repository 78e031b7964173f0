// Package chatview conecta las stores de reconcile con la persistencia, el
// canal push y el modelo, como lo hacen las paginas de lista y de chat.
package chatview

import (
	"context"
	"errors"

	"chatline/internal/domain"
	"chatline/internal/llm"
	"chatline/internal/realtime"
)

const (
	MsgSendFailed   = "Failed to send message"
	MsgReplyFailed  = "Failed to get a response. Please try again."
	MsgCreateFailed = "Failed to create chat. Please try again."
	MsgDeleteFailed = "Failed to delete chat. Please try again."
	MsgChatMissing  = "Chat not found."
)

var (
	ErrEmptyInput = errors.New("chatview: empty input")
	ErrBusy       = errors.New("chatview: operation in progress")
	ErrClosed     = errors.New("chatview: view closed")
	ErrNotInList  = errors.New("chatview: chat not in list")
)

// Persistence es el colaborador de persistencia de sesiones y mensajes.
type Persistence interface {
	CreateSession(ctx context.Context, ownerID string) (domain.ChatSession, error)
	GetSession(ctx context.Context, id, ownerID string) (domain.ChatSession, error)
	ListSessions(ctx context.Context, ownerID string) ([]domain.ChatSession, error)
	ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
	AddMessage(ctx context.Context, sessionID, content, role string) (domain.Message, error)
	UpdateMessageCount(ctx context.Context, sessionID string, count int) (domain.ChatSession, error)
	RenameSession(ctx context.Context, sessionID, name string) (domain.ChatSession, error)
	DeleteSession(ctx context.Context, id, ownerID string) error
}

type PushChannel interface {
	Subscribe(ctx context.Context, ownerID string) (*realtime.Subscription, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string, history []llm.Turn) (string, error)
}

type Titler interface {
	GenerateTitle(ctx context.Context, firstMessage string) string
}

type HistoryBuilder interface {
	Build(messages []domain.Message) []llm.Turn
}

// Notifier muestra avisos no fatales al usuario.
type Notifier interface {
	Error(message string)
}

type nopNotifier struct{}

func (nopNotifier) Error(string) {}
