package models

import "time"

// Channel is a provider-owned channel tracked for a user. ChannelID is the
// provider-assigned natural key and is never regenerated locally.
type Channel struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	Provider     string     `db:"provider"`
	ChannelID    string     `db:"channel_id"`
	Title        string     `db:"title"`
	Description  string     `db:"description"`
	LastSyncedAt *time.Time `db:"last_synced_at"`
	CreatedAt    time.Time  `db:"created_at"`
}
