package db

import (
	"log"
	"statsync/internal/models"
)

// GetChannelByChannelID looks up a channel by its provider-assigned id.
func GetChannelByChannelID(channelID string) (*models.Channel, error) {
	channel := &models.Channel{}
	err := DB.Get(channel, "SELECT * FROM channels WHERE channel_id = $1", channelID)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// GetChannelsByUserID returns all channels owned by a user.
func GetChannelsByUserID(userID int64) ([]models.Channel, error) {
	query := `
		SELECT id, user_id, provider, channel_id, title, description, last_synced_at, created_at
		FROM channels
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	var channels []models.Channel
	err := DB.Select(&channels, query, userID)
	if err != nil {
		log.Printf("Error getting channels for user %d: %v", userID, err)
		return nil, err
	}
	return channels, nil
}

// UpsertChannel inserts a channel on first discovery or refreshes its title
// and description from the provider. channel_id is the conflict key; rows are
// never re-created for a known channel.
func UpsertChannel(userID int64, provider string, channelID string, title string, description string) (*models.Channel, error) {
	query := `
		INSERT INTO channels (user_id, provider, channel_id, title, description, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (channel_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			last_synced_at = NOW()
		RETURNING id, user_id, provider, channel_id, title, description, last_synced_at, created_at
	`
	channel := &models.Channel{}
	err := DB.Get(channel, query, userID, provider, channelID, title, description)
	if err != nil {
		log.Printf("Error upserting channel %s: %v", channelID, err)
		return nil, err
	}
	return channel, nil
}
