package models

import "time"

// User represents an operator account. The authenticated user's ID is the
// actor recorded against every stock mutation.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username" binding:"required"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     *string   `json:"full_name,omitempty" db:"full_name"`
	Role         string    `json:"role" db:"role"` // admin, manager, operator
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
