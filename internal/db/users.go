package db

import (
	"log"
	"statsync/internal/models"
)

// GetUserByAPIToken resolves the user owning the given API token.
func GetUserByAPIToken(token string) (*models.User, error) {
	user := &models.User{}
	err := DB.Get(user, "SELECT * FROM users WHERE api_token = $1", token)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpsertUser inserts a new user or updates an existing one based on the email.
func UpsertUser(email string, fullName string) (*models.User, error) {
	query := `
		INSERT INTO users (email, full_name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			updated_at = NOW()
		RETURNING id, email, full_name, api_token, created_at, updated_at
	`
	user := &models.User{}
	err := DB.Get(user, query, email, fullName)
	if err != nil {
		log.Printf("Error upserting user: %v", err)
		return nil, err
	}
	return user, nil
}
