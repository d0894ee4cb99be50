package db

import (
	"fmt"
	"log"

	"statsync/internal/models"
)

// GetDemographicsByChannelID returns the stored audience distribution for a
// channel.
func GetDemographicsByChannelID(channelID string) ([]models.AudienceDemographic, error) {
	query := `
		SELECT id, channel_id, age_group, gender, viewer_percentage
		FROM audience_demographics
		WHERE channel_id = $1
		ORDER BY age_group, gender
	`
	var rows []models.AudienceDemographic
	err := DB.Select(&rows, query, channelID)
	if err != nil {
		log.Printf("Error getting demographics for channel %s: %v", channelID, err)
		return nil, err
	}
	return rows, nil
}

// ReplaceDemographics replaces the whole stored distribution for a channel
// with the given set. The provider returns the complete distribution each
// time, so stale rows must not survive a sync.
func ReplaceDemographics(channelID string, rows []models.AudienceDemographic) error {
	tx, err := DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin demographics transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM audience_demographics WHERE channel_id = $1", channelID); err != nil {
		return fmt.Errorf("failed to delete demographics for channel %s: %w", channelID, err)
	}

	for _, row := range rows {
		_, err := tx.Exec(
			"INSERT INTO audience_demographics (channel_id, age_group, gender, viewer_percentage) VALUES ($1, $2, $3, $4)",
			channelID, row.AgeGroup, row.Gender, row.ViewerPercentage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert demographic row for channel %s: %w", channelID, err)
		}
	}

	return tx.Commit()
}
