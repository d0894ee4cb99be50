package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"statsync/internal/models"
)

const (
	tiktokBaseURL = "https://open.tiktokapis.com/v2"

	// The display API caps video/list pages at 20.
	tiktokPageSize = 20
)

// TikTok talks to the TikTok display API. The account's open_id stands in
// for a channel id, and TikTok exposes neither a daily analytics report nor
// audience demographics, so those fetches return empty sets.
type TikTok struct {
	http    *httpClient
	baseURL string
}

func NewTikTok(client *http.Client) *TikTok {
	return &TikTok{
		http:    newHTTPClient(client, 5),
		baseURL: tiktokBaseURL,
	}
}

// NewTikTokWithBaseURL is used by tests to point the client at a stub server.
func NewTikTokWithBaseURL(client *http.Client, baseURL string) *TikTok {
	t := NewTikTok(client)
	t.baseURL = baseURL
	return t
}

func (t *TikTok) Name() string { return models.ProviderTikTok }

// tiktokEnvelope is the common response wrapper: payload under data, error
// code alongside.
type tiktokEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (t *TikTok) call(ctx context.Context, method, url, token string, reqBody, out any) error {
	var payload []byte
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = b
	}

	body, err := t.http.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := bearerRequest(ctx, method, url, token, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	var env tiktokEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	if env.Error.Code != "" && env.Error.Code != "ok" {
		return fmt.Errorf("tiktok API error %s: %s", env.Error.Code, env.Error.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode provider response data: %w", err)
		}
	}
	return nil
}

type tiktokUserInfo struct {
	User struct {
		OpenID         string `json:"open_id"`
		DisplayName    string `json:"display_name"`
		BioDescription string `json:"bio_description"`
		FollowerCount  int64  `json:"follower_count"`
		LikesCount     int64  `json:"likes_count"`
		VideoCount     int64  `json:"video_count"`
	} `json:"user"`
}

// FetchOwnChannelID returns the account's open_id.
func (t *TikTok) FetchOwnChannelID(ctx context.Context, token string) (string, error) {
	var info tiktokUserInfo
	u := t.baseURL + "/user/info/?fields=open_id,display_name"
	if err := t.call(ctx, http.MethodGet, u, token, nil, &info); err != nil {
		return "", err
	}
	if info.User.OpenID == "" {
		return "", ErrNoChannel
	}
	return info.User.OpenID, nil
}

// FetchChannelStats maps the account profile onto channel counters. TikTok
// has no account-level view total, so Views stays zero.
func (t *TikTok) FetchChannelStats(ctx context.Context, token, channelID string) (*ChannelStats, error) {
	var info tiktokUserInfo
	u := t.baseURL + "/user/info/?fields=open_id,display_name,bio_description,follower_count,likes_count,video_count"
	if err := t.call(ctx, http.MethodGet, u, token, nil, &info); err != nil {
		return nil, err
	}
	if info.User.OpenID == "" {
		return nil, ErrNoChannel
	}
	return &ChannelStats{
		Title:       info.User.DisplayName,
		Description: info.User.BioDescription,
		Subscribers: info.User.FollowerCount,
		VideoCount:  info.User.VideoCount,
	}, nil
}

type tiktokVideo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreateTime   int64  `json:"create_time"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	ShareCount   int64  `json:"share_count"`
}

// ListChannelVideos drains video/list cursor by cursor until has_more turns
// false.
func (t *TikTok) ListChannelVideos(ctx context.Context, token, channelID string) ([]VideoStub, error) {
	var stubs []VideoStub
	cursor := int64(0)
	for {
		var data struct {
			Videos  []tiktokVideo `json:"videos"`
			Cursor  int64         `json:"cursor"`
			HasMore bool          `json:"has_more"`
		}
		reqBody := map[string]int64{"max_count": tiktokPageSize}
		if cursor != 0 {
			reqBody["cursor"] = cursor
		}
		u := t.baseURL + "/video/list/?fields=id,title,create_time"
		if err := t.call(ctx, http.MethodPost, u, token, reqBody, &data); err != nil {
			return nil, fmt.Errorf("failed to list videos for account %s: %w", channelID, err)
		}

		for _, v := range data.Videos {
			stubs = append(stubs, VideoStub{
				VideoID:     v.ID,
				Title:       v.Title,
				PublishedAt: time.Unix(v.CreateTime, 0).UTC(),
			})
		}

		if !data.HasMore {
			return stubs, nil
		}
		cursor = data.Cursor
	}
}

// FetchVideoStatsBatch queries counters for up to MaxBatchSize videos.
func (t *TikTok) FetchVideoStatsBatch(ctx context.Context, token string, ids []string) (map[string]VideoStats, error) {
	if len(ids) == 0 {
		return map[string]VideoStats{}, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds the %d id limit", len(ids), MaxBatchSize)
	}

	var data struct {
		Videos []tiktokVideo `json:"videos"`
	}
	reqBody := map[string]any{"filters": map[string]any{"video_ids": ids}}
	u := t.baseURL + "/video/query/?fields=id,view_count,like_count,comment_count"
	if err := t.call(ctx, http.MethodPost, u, token, reqBody, &data); err != nil {
		return nil, err
	}

	stats := make(map[string]VideoStats, len(data.Videos))
	for _, v := range data.Videos {
		stats[v.ID] = VideoStats{
			Views:    v.ViewCount,
			Likes:    v.LikeCount,
			Comments: v.CommentCount,
		}
	}
	return stats, nil
}

// FetchAnalyticsDaily returns an empty report: the display API has no
// per-day analytics endpoint.
func (t *TikTok) FetchAnalyticsDaily(ctx context.Context, token, channelID string, from, to time.Time) ([]AnalyticsDay, error) {
	return nil, nil
}

// FetchAudienceDemographics returns an empty set: the display API exposes no
// audience demographics.
func (t *TikTok) FetchAudienceDemographics(ctx context.Context, token, channelID string, from, to time.Time) ([]Demographic, error) {
	return nil, nil
}
