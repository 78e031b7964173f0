package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatline/internal/domain"
)

// ChatRepository define el contrato de persistencia para sesiones de chat.
type ChatRepository interface {
	Create(ctx context.Context, session domain.ChatSession) error
	GetByID(ctx context.Context, id string) (domain.ChatSession, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ChatSession, error)
	UpdateMessageCount(ctx context.Context, id string, count int) (domain.ChatSession, error)
	UpdateName(ctx context.Context, id, name string) (domain.ChatSession, error)
	// Delete devuelve pgx.ErrNoRows si no habia fila para (id, owner).
	Delete(ctx context.Context, id, ownerID string) (domain.ChatSession, error)
}

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

const chatColumns = `id::text, owner_id, COALESCE(name, ''), message_count, created_at`

func (r *PgChatRepository) Create(ctx context.Context, session domain.ChatSession) error {
	const query = `
		INSERT INTO chats (id, owner_id, name, message_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.OwnerID,
		nullableString(session.Name),
		session.MessageCount,
		session.CreatedAt,
	)
	return err
}

func (r *PgChatRepository) GetByID(ctx context.Context, id string) (domain.ChatSession, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`
	return scanChat(r.pool.QueryRow(ctx, query, id))
}

func (r *PgChatRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.ChatSession, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.ChatSession, 0)
	for rows.Next() {
		session, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *PgChatRepository) UpdateMessageCount(ctx context.Context, id string, count int) (domain.ChatSession, error) {
	query := `UPDATE chats SET message_count = $2 WHERE id = $1 RETURNING ` + chatColumns
	return scanChat(r.pool.QueryRow(ctx, query, id, count))
}

func (r *PgChatRepository) UpdateName(ctx context.Context, id, name string) (domain.ChatSession, error) {
	query := `UPDATE chats SET name = $2 WHERE id = $1 RETURNING ` + chatColumns
	return scanChat(r.pool.QueryRow(ctx, query, id, nullableString(name)))
}

// Delete borra el chat; los mensajes caen por ON DELETE CASCADE.
func (r *PgChatRepository) Delete(ctx context.Context, id, ownerID string) (domain.ChatSession, error) {
	query := `DELETE FROM chats WHERE id = $1 AND owner_id = $2 RETURNING ` + chatColumns
	return scanChat(r.pool.QueryRow(ctx, query, id, ownerID))
}

func scanChat(row pgx.Row) (domain.ChatSession, error) {
	var s domain.ChatSession
	err := row.Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.MessageCount,
		&s.CreatedAt,
	)
	return s, err
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
