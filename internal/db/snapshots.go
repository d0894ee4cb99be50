package db

import (
	"log"
	"time"

	"statsync/internal/models"
)

// UpsertChannelDailyStats writes the channel-stats portion of a daily
// snapshot. Repeated runs on the same date overwrite the earlier values; the
// analytics columns are left alone so a later stats pass cannot clobber them.
func UpsertChannelDailyStats(channelID string, date time.Time, subscribers, views, videoCount int64) error {
	query := `
		INSERT INTO channel_daily_snapshots (channel_id, date, subscribers, views, video_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_id, date) DO UPDATE SET
			subscribers = EXCLUDED.subscribers,
			views = EXCLUDED.views,
			video_count = EXCLUDED.video_count
	`
	_, err := DB.Exec(query, channelID, Day(date), subscribers, views, videoCount)
	if err != nil {
		log.Printf("Error upserting daily stats for channel %s: %v", channelID, err)
	}
	return err
}

// UpsertChannelDailyAnalytics writes the analytics-report portion of a daily
// snapshot. The provider finalizes analytics data late, so this may update
// dates in the past.
func UpsertChannelDailyAnalytics(channelID string, date time.Time, views, gained, lost, watchedMinutes, likes, comments int64) error {
	query := `
		INSERT INTO channel_daily_snapshots (channel_id, date, analytics_views, subscribers_gained, subscribers_lost, watched_minutes, likes, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (channel_id, date) DO UPDATE SET
			analytics_views = EXCLUDED.analytics_views,
			subscribers_gained = EXCLUDED.subscribers_gained,
			subscribers_lost = EXCLUDED.subscribers_lost,
			watched_minutes = EXCLUDED.watched_minutes,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments
	`
	_, err := DB.Exec(query, channelID, Day(date), views, gained, lost, watchedMinutes, likes, comments)
	if err != nil {
		log.Printf("Error upserting analytics for channel %s on %s: %v", channelID, date.Format("2006-01-02"), err)
	}
	return err
}

// UpsertVideoDailySnapshot writes one video's counters for one date, keyed on
// (video_id, date).
func UpsertVideoDailySnapshot(videoID string, date time.Time, views, likes, comments int64) error {
	query := `
		INSERT INTO video_daily_snapshots (video_id, date, views, likes, comments)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (video_id, date) DO UPDATE SET
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments
	`
	_, err := DB.Exec(query, videoID, Day(date), views, likes, comments)
	if err != nil {
		log.Printf("Error upserting daily snapshot for video %s: %v", videoID, err)
	}
	return err
}

// GetChannelDailySnapshots returns a channel's snapshots inside the window,
// oldest first.
func GetChannelDailySnapshots(channelID string, from, to time.Time) ([]models.ChannelDailySnapshot, error) {
	query := `
		SELECT * FROM channel_daily_snapshots
		WHERE channel_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`
	var snapshots []models.ChannelDailySnapshot
	err := DB.Select(&snapshots, query, channelID, Day(from), Day(to))
	if err != nil {
		log.Printf("Error getting daily snapshots for channel %s: %v", channelID, err)
		return nil, err
	}
	return snapshots, nil
}

// GetVideoDailySnapshots returns a video's snapshots inside the window,
// oldest first.
func GetVideoDailySnapshots(videoID string, from, to time.Time) ([]models.VideoDailySnapshot, error) {
	query := `
		SELECT * FROM video_daily_snapshots
		WHERE video_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`
	var snapshots []models.VideoDailySnapshot
	err := DB.Select(&snapshots, query, videoID, Day(from), Day(to))
	if err != nil {
		log.Printf("Error getting daily snapshots for video %s: %v", videoID, err)
		return nil, err
	}
	return snapshots, nil
}
