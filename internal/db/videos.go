package db

import (
	"log"
	"time"

	"statsync/internal/models"
)

// GetVideosByChannelID returns all tracked videos for a channel, newest first.
func GetVideosByChannelID(channelID string) ([]models.Video, error) {
	query := `
		SELECT id, channel_id, video_id, title, published_at, views, likes, comments, created_at
		FROM videos
		WHERE channel_id = $1
		ORDER BY published_at DESC
	`
	var videos []models.Video
	err := DB.Select(&videos, query, channelID)
	if err != nil {
		log.Printf("Error getting videos for channel %s: %v", channelID, err)
		return nil, err
	}
	return videos, nil
}

// UpsertVideo writes the last observed counters for a video, keyed by
// video_id. Counters replace the stored values; they are not accumulated.
func UpsertVideo(channelID string, videoID string, title string, publishedAt time.Time, views, likes, comments int64) error {
	query := `
		INSERT INTO videos (channel_id, video_id, title, published_at, views, likes, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (video_id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			title = EXCLUDED.title,
			published_at = EXCLUDED.published_at,
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments
	`
	_, err := DB.Exec(query, channelID, videoID, title, publishedAt, views, likes, comments)
	if err != nil {
		log.Printf("Error upserting video %s: %v", videoID, err)
	}
	return err
}
