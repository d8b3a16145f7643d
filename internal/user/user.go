package user

import "time"

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"nome"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Phones       []Phone    `json:"telefones"`
	CreatedAt    time.Time  `json:"data_criacao"`
	UpdatedAt    time.Time  `json:"data_atualizacao"`
	LastLogin    *time.Time `json:"ultimo_login"`
}

// Phone is one entry of the contact list. Its fields are not interpreted;
// the object is stored and returned exactly as received at signup.
type Phone map[string]any
