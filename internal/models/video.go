package models

import "time"

// Video holds the last observed cumulative counters for one video. Counters
// are overwritten on every sync pass; history lives in VideoDailySnapshot.
type Video struct {
	ID          int64     `db:"id"`
	ChannelID   string    `db:"channel_id"`
	VideoID     string    `db:"video_id"`
	Title       string    `db:"title"`
	PublishedAt time.Time `db:"published_at"`
	Views       int64     `db:"views"`
	Likes       int64     `db:"likes"`
	Comments    int64     `db:"comments"`
	CreatedAt   time.Time `db:"created_at"`
}
