package domain

import "time"

// ChatSession es una conversacion del usuario; el id lo asigna siempre el servidor.
type ChatSession struct {
	ID           string    `json:"chat_id"`
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name,omitempty"`
	MessageCount int       `json:"number_of_messages"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName devuelve el nombre visible de la sesion.
func (s ChatSession) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return "Chat from " + s.CreatedAt.Local().Format("2006-01-02")
}
