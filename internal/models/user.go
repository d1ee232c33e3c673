package models

import "time"

// User — снимок пользователя, полученный с сервера.
// Клиент никогда не мутирует его частично: при логине/обновлении
// значение заменяется целиком.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	IsActive  bool       `json:"is_active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
