package models

import "time"

// ChannelDailySnapshot is one calendar-day record of channel metrics, unique
// on (channel_id, date). Subscribers/Views/VideoCount come from the channel
// stats endpoint; the remaining fields come from the analytics report and may
// be corrected retroactively as the provider finalizes its data.
type ChannelDailySnapshot struct {
	ID                int64     `db:"id"`
	ChannelID         string    `db:"channel_id"`
	Date              time.Time `db:"date"`
	Subscribers       int64     `db:"subscribers"`
	Views             int64     `db:"views"`
	VideoCount        int64     `db:"video_count"`
	SubscribersGained int64     `db:"subscribers_gained"`
	SubscribersLost   int64     `db:"subscribers_lost"`
	AnalyticsViews    int64     `db:"analytics_views"`
	WatchedMinutes    int64     `db:"watched_minutes"`
	Likes             int64     `db:"likes"`
	Comments          int64     `db:"comments"`
}

// VideoDailySnapshot is one calendar-day record of video counters, unique on
// (video_id, date).
type VideoDailySnapshot struct {
	ID       int64     `db:"id"`
	VideoID  string    `db:"video_id"`
	Date     time.Time `db:"date"`
	Views    int64     `db:"views"`
	Likes    int64     `db:"likes"`
	Comments int64     `db:"comments"`
}
