package models

// AudienceDemographic is one slice of a channel's audience distribution,
// unique on (channel_id, age_group, gender). The provider returns the full
// distribution on every sync, so the set for a channel is replaced wholesale
// rather than merged.
type AudienceDemographic struct {
	ID               int64   `db:"id"`
	ChannelID        string  `db:"channel_id"`
	AgeGroup         string  `db:"age_group"`
	Gender           string  `db:"gender"`
	ViewerPercentage float64 `db:"viewer_percentage"`
}
