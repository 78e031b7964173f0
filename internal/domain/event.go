package domain

import "time"

type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent describe un cambio sobre la tabla de chats de un owner.
// Para delete solo se garantiza Session.ID (registro anterior).
type ChangeEvent struct {
	Type       ChangeType  `json:"event_type"`
	OwnerID    string      `json:"owner_id"`
	Session    ChatSession `json:"record"`
	OccurredAt time.Time   `json:"occurred_at"`
}
