package models

import "time"

// Provider identifiers for stored credentials.
const (
	ProviderGoogle = "google"
	ProviderTikTok = "tiktok"
)

// Credential holds the OAuth token material for one (user, provider) pair.
// It is mutated only by credentials.Store.EnsureValid and the OAuth
// callback flow that created it.
type Credential struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	Provider      string    `db:"provider"`
	AccessToken   string    `db:"access_token"`
	RefreshToken  string    `db:"refresh_token"`
	Expiry        time.Time `db:"expiry"`
	TokenEndpoint string    `db:"token_endpoint"`
	ClientID      string    `db:"client_id"`
	ClientSecret  string    `db:"client_secret"`
	Scopes        string    `db:"scopes"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}
