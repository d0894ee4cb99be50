package db

import (
	"log"
	"time"

	"statsync/internal/models"
)

// GetAllCredentials returns every stored credential, oldest first. The
// scheduler iterates this set on each batch run.
func GetAllCredentials() ([]models.Credential, error) {
	var creds []models.Credential
	err := DB.Select(&creds, "SELECT * FROM credentials ORDER BY id")
	if err != nil {
		log.Printf("Error getting credentials: %v", err)
		return nil, err
	}
	return creds, nil
}

// GetCredentialByID returns one credential by primary key.
func GetCredentialByID(id int64) (*models.Credential, error) {
	cred := &models.Credential{}
	err := DB.Get(cred, "SELECT * FROM credentials WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// GetCredential returns the credential for one (user, provider) pair. There
// is at most one row per pair.
func GetCredential(userID int64, provider string) (*models.Credential, error) {
	cred := &models.Credential{}
	err := DB.Get(cred, "SELECT * FROM credentials WHERE user_id = $1 AND provider = $2", userID, provider)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// UpdateCredentialToken persists the result of a successful token refresh.
// The caller passes the previous refresh token when the provider did not
// rotate it.
func UpdateCredentialToken(id int64, accessToken string, refreshToken string, expiry time.Time) error {
	query := `
		UPDATE credentials
		SET access_token = $1, refresh_token = $2, expiry = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := DB.Exec(query, accessToken, refreshToken, expiry, id)
	if err != nil {
		log.Printf("Error updating credential %d: %v", id, err)
	}
	return err
}
