package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"statsync/internal/models"
)

const (
	googleDataBaseURL      = "https://www.googleapis.com/youtube/v3"
	googleAnalyticsBaseURL = "https://youtubeanalytics.googleapis.com/v2"

	// YouTube caps both search pages and the videos id filter at 50.
	googlePageSize = 50
)

// Google talks to the YouTube Data API and the YouTube Analytics API.
type Google struct {
	http             *httpClient
	dataBaseURL      string
	analyticsBaseURL string
}

// NewGoogle builds a Google client with production endpoints.
func NewGoogle(client *http.Client) *Google {
	return &Google{
		http:             newHTTPClient(client, 5),
		dataBaseURL:      googleDataBaseURL,
		analyticsBaseURL: googleAnalyticsBaseURL,
	}
}

// NewGoogleWithBaseURLs is used by tests to point the client at a stub
// server.
func NewGoogleWithBaseURLs(client *http.Client, dataBaseURL, analyticsBaseURL string) *Google {
	g := NewGoogle(client)
	g.dataBaseURL = dataBaseURL
	g.analyticsBaseURL = analyticsBaseURL
	return g
}

func (g *Google) Name() string { return models.ProviderGoogle }

func (g *Google) getJSON(ctx context.Context, token, rawURL string, out any) error {
	body, err := g.http.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return bearerRequest(ctx, http.MethodGet, rawURL, token, nil)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}

// FetchOwnChannelID resolves the channel owned by the authenticated user.
func (g *Google) FetchOwnChannelID(ctx context.Context, token string) (string, error) {
	var resp struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	u := g.dataBaseURL + "/channels?part=id&mine=true"
	if err := g.getJSON(ctx, token, u, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", ErrNoChannel
	}
	return resp.Items[0].ID, nil
}

// FetchChannelStats returns the channel title and headline counters. The
// Data API serializes statistics as strings.
func (g *Google) FetchChannelStats(ctx context.Context, token, channelID string) (*ChannelStats, error) {
	var resp struct {
		Items []struct {
			Snippet struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"snippet"`
			Statistics struct {
				SubscriberCount string `json:"subscriberCount"`
				ViewCount       string `json:"viewCount"`
				VideoCount      string `json:"videoCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	u := fmt.Sprintf("%s/channels?part=snippet,statistics&id=%s", g.dataBaseURL, url.QueryEscape(channelID))
	if err := g.getJSON(ctx, token, u, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrNoChannel
	}
	item := resp.Items[0]
	return &ChannelStats{
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Subscribers: parseCount(item.Statistics.SubscriberCount),
		Views:       parseCount(item.Statistics.ViewCount),
		VideoCount:  parseCount(item.Statistics.VideoCount),
	}, nil
}

// ListChannelVideos drains the search endpoint page by page until the
// provider stops returning a page token. A failure on any page fails the
// whole listing.
func (g *Google) ListChannelVideos(ctx context.Context, token, channelID string) ([]VideoStub, error) {
	var stubs []VideoStub
	pageToken := ""
	for {
		var resp struct {
			NextPageToken string `json:"nextPageToken"`
			Items         []struct {
				ID struct {
					VideoID string `json:"videoId"`
				} `json:"id"`
				Snippet struct {
					Title       string    `json:"title"`
					PublishedAt time.Time `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"items"`
		}

		q := url.Values{
			"part":       {"snippet"},
			"channelId":  {channelID},
			"maxResults": {strconv.Itoa(googlePageSize)},
			"order":      {"date"},
			"type":       {"video"},
		}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u := g.dataBaseURL + "/search?" + q.Encode()
		if err := g.getJSON(ctx, token, u, &resp); err != nil {
			return nil, fmt.Errorf("failed to list videos for channel %s: %w", channelID, err)
		}

		for _, item := range resp.Items {
			if item.ID.VideoID == "" {
				continue
			}
			stubs = append(stubs, VideoStub{
				VideoID:     item.ID.VideoID,
				Title:       item.Snippet.Title,
				PublishedAt: item.Snippet.PublishedAt,
			})
		}

		if resp.NextPageToken == "" {
			return stubs, nil
		}
		pageToken = resp.NextPageToken
	}
}

// FetchVideoStatsBatch returns counters for up to MaxBatchSize videos in one
// call. Videos missing from the response (deleted or private) are absent
// from the map.
func (g *Google) FetchVideoStatsBatch(ctx context.Context, token string, ids []string) (map[string]VideoStats, error) {
	if len(ids) == 0 {
		return map[string]VideoStats{}, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds the %d id limit", len(ids), MaxBatchSize)
	}

	var resp struct {
		Items []struct {
			ID         string `json:"id"`
			Statistics struct {
				ViewCount    string `json:"viewCount"`
				LikeCount    string `json:"likeCount"`
				CommentCount string `json:"commentCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	u := fmt.Sprintf("%s/videos?part=statistics&id=%s", g.dataBaseURL, url.QueryEscape(strings.Join(ids, ",")))
	if err := g.getJSON(ctx, token, u, &resp); err != nil {
		return nil, err
	}

	stats := make(map[string]VideoStats, len(resp.Items))
	for _, item := range resp.Items {
		stats[item.ID] = VideoStats{
			Views:    parseCount(item.Statistics.ViewCount),
			Likes:    parseCount(item.Statistics.LikeCount),
			Comments: parseCount(item.Statistics.CommentCount),
		}
	}
	return stats, nil
}

// analyticsMetrics is the column order requested from the Analytics API; row
// values come back in the same order after the day dimension.
const analyticsMetrics = "views,subscribersGained,subscribersLost,estimatedMinutesWatched,likes,comments"

// FetchAnalyticsDaily queries the per-day channel report for the window.
func (g *Google) FetchAnalyticsDaily(ctx context.Context, token, channelID string, from, to time.Time) ([]AnalyticsDay, error) {
	q := url.Values{
		"ids":        {"channel==" + channelID},
		"startDate":  {from.Format("2006-01-02")},
		"endDate":    {to.Format("2006-01-02")},
		"metrics":    {analyticsMetrics},
		"dimensions": {"day"},
	}
	var resp struct {
		Rows [][]any `json:"rows"`
	}
	u := g.analyticsBaseURL + "/reports?" + q.Encode()
	if err := g.getJSON(ctx, token, u, &resp); err != nil {
		return nil, err
	}

	days := make([]AnalyticsDay, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		if len(row) < 7 {
			continue
		}
		date, err := time.Parse("2006-01-02", rowString(row[0]))
		if err != nil {
			return nil, fmt.Errorf("failed to parse analytics date %q: %w", rowString(row[0]), err)
		}
		days = append(days, AnalyticsDay{
			Date:              date,
			Views:             rowInt(row[1]),
			SubscribersGained: rowInt(row[2]),
			SubscribersLost:   rowInt(row[3]),
			WatchedMinutes:    rowInt(row[4]),
			Likes:             rowInt(row[5]),
			Comments:          rowInt(row[6]),
		})
	}
	return days, nil
}

// FetchAudienceDemographics queries the viewer-percentage report, which
// returns the complete distribution for the window.
func (g *Google) FetchAudienceDemographics(ctx context.Context, token, channelID string, from, to time.Time) ([]Demographic, error) {
	q := url.Values{
		"ids":        {"channel==" + channelID},
		"startDate":  {from.Format("2006-01-02")},
		"endDate":    {to.Format("2006-01-02")},
		"metrics":    {"viewerPercentage"},
		"dimensions": {"ageGroup,gender"},
	}
	var resp struct {
		Rows [][]any `json:"rows"`
	}
	u := g.analyticsBaseURL + "/reports?" + q.Encode()
	if err := g.getJSON(ctx, token, u, &resp); err != nil {
		return nil, err
	}

	demos := make([]Demographic, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		if len(row) < 3 {
			continue
		}
		demos = append(demos, Demographic{
			AgeGroup:         rowString(row[0]),
			Gender:           rowString(row[1]),
			ViewerPercentage: rowFloat(row[2]),
		})
	}
	return demos, nil
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func rowString(v any) string {
	s, _ := v.(string)
	return s
}

func rowFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func rowInt(v any) int64 {
	return int64(rowFloat(v))
}
