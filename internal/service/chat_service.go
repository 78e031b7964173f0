package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"chatline/internal/domain"
	"chatline/internal/realtime"
	"chatline/internal/repository"
)

// ChatService persiste sesiones y mensajes y publica cada cambio de sesion
// en el canal realtime del owner.
type ChatService struct {
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	publisher realtime.Publisher
	logger    *zap.Logger
}

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrChatNotFound             = fmt.Errorf("chat %w", domain.ErrNotFound)
	ErrChatInvalidInput         = errors.New("chat invalid input")
)

const pgForeignKeyViolation = "23503"

func NewChatService(chats repository.ChatRepository, messages repository.MessageRepository, publisher realtime.Publisher, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{chats: chats, messages: messages, publisher: publisher, logger: logger}
}

func (s *ChatService) CreateSession(ctx context.Context, ownerID string) (domain.ChatSession, error) {
	if s == nil || s.chats == nil {
		return domain.ChatSession{}, ErrChatServiceNotConfigured
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return domain.ChatSession{}, ErrChatInvalidInput
	}

	session := domain.ChatSession{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.chats.Create(ctx, session); err != nil {
		return domain.ChatSession{}, fmt.Errorf("create chat: %w", err)
	}
	s.publish(ctx, domain.ChangeInsert, session)
	return session, nil
}

// GetSession devuelve ErrChatNotFound si no existe o pertenece a otro owner.
func (s *ChatService) GetSession(ctx context.Context, id, ownerID string) (domain.ChatSession, error) {
	if s == nil || s.chats == nil {
		return domain.ChatSession{}, ErrChatServiceNotConfigured
	}
	id = strings.TrimSpace(id)
	ownerID = strings.TrimSpace(ownerID)
	if id == "" || ownerID == "" {
		return domain.ChatSession{}, ErrChatInvalidInput
	}
	if !isUUID(id) {
		return domain.ChatSession{}, ErrChatNotFound
	}

	session, err := s.chats.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChatSession{}, ErrChatNotFound
		}
		return domain.ChatSession{}, fmt.Errorf("get chat: %w", err)
	}
	if session.OwnerID != ownerID {
		return domain.ChatSession{}, ErrChatNotFound
	}
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context, ownerID string) ([]domain.ChatSession, error) {
	if s == nil || s.chats == nil {
		return nil, ErrChatServiceNotConfigured
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrChatInvalidInput
	}
	sessions, err := s.chats.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return sessions, nil
}

func (s *ChatService) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if s == nil || s.messages == nil {
		return nil, ErrChatServiceNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrChatInvalidInput
	}
	if !isUUID(sessionID) {
		return []domain.Message{}, nil
	}
	messages, err := s.messages.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (s *ChatService) AddMessage(ctx context.Context, sessionID, content, role string) (domain.Message, error) {
	if s == nil || s.messages == nil {
		return domain.Message{}, ErrChatServiceNotConfigured
	}
	msg := domain.Message{
		ID:        uuid.NewString(),
		SessionID: strings.TrimSpace(sessionID),
		Content:   strings.TrimSpace(content),
		Role:      strings.TrimSpace(role),
		CreatedAt: time.Now().UTC(),
	}
	if msg.SessionID == "" || msg.Content == "" || !domain.ValidRole(msg.Role) {
		return domain.Message{}, ErrChatInvalidInput
	}
	if !isUUID(msg.SessionID) {
		return domain.Message{}, ErrChatNotFound
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return domain.Message{}, ErrChatNotFound
		}
		return domain.Message{}, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

func (s *ChatService) UpdateMessageCount(ctx context.Context, sessionID string, count int) (domain.ChatSession, error) {
	if s == nil || s.chats == nil {
		return domain.ChatSession{}, ErrChatServiceNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || count < 0 {
		return domain.ChatSession{}, ErrChatInvalidInput
	}
	if !isUUID(sessionID) {
		return domain.ChatSession{}, ErrChatNotFound
	}

	session, err := s.chats.UpdateMessageCount(ctx, sessionID, count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChatSession{}, ErrChatNotFound
		}
		return domain.ChatSession{}, fmt.Errorf("update message count: %w", err)
	}
	s.publish(ctx, domain.ChangeUpdate, session)
	return session, nil
}

// RenameSession guarda el nombre recortado; un nombre vacio queda como NULL.
func (s *ChatService) RenameSession(ctx context.Context, sessionID, name string) (domain.ChatSession, error) {
	if s == nil || s.chats == nil {
		return domain.ChatSession{}, ErrChatServiceNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.ChatSession{}, ErrChatInvalidInput
	}
	if !isUUID(sessionID) {
		return domain.ChatSession{}, ErrChatNotFound
	}

	session, err := s.chats.UpdateName(ctx, sessionID, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChatSession{}, ErrChatNotFound
		}
		return domain.ChatSession{}, fmt.Errorf("rename chat: %w", err)
	}
	s.publish(ctx, domain.ChangeUpdate, session)
	return session, nil
}

// DeleteSession borra la sesion del owner y sus mensajes.
func (s *ChatService) DeleteSession(ctx context.Context, id, ownerID string) error {
	if s == nil || s.chats == nil {
		return ErrChatServiceNotConfigured
	}
	id = strings.TrimSpace(id)
	ownerID = strings.TrimSpace(ownerID)
	if id == "" || ownerID == "" {
		return ErrChatInvalidInput
	}
	if !isUUID(id) {
		return ErrChatNotFound
	}

	deleted, err := s.chats.Delete(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrChatNotFound
		}
		return fmt.Errorf("delete chat: %w", err)
	}
	s.publish(ctx, domain.ChangeDelete, deleted)
	return nil
}

// publish no falla la operacion: la fila ya quedo persistida.
func (s *ChatService) publish(ctx context.Context, changeType domain.ChangeType, session domain.ChatSession) {
	if s.publisher == nil {
		return
	}
	event := domain.ChangeEvent{
		Type:       changeType,
		OwnerID:    session.OwnerID,
		Session:    session,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish chat change failed",
			zap.Error(err),
			zap.String("chat_id", session.ID),
			zap.String("event_type", string(changeType)),
		)
	}
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
