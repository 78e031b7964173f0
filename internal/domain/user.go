package domain

// User es la identidad autenticada; la emision de credenciales queda fuera de este servicio.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}
