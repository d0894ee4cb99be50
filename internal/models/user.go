package models

import "time"

// User represents a user in the database.
type User struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	FullName  string    `db:"full_name"`
	APIToken  string    `db:"api_token"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type contextKey string

// UserContextKey is the key under which the authenticated user is stored
// in a request context.
const UserContextKey = contextKey("user")
