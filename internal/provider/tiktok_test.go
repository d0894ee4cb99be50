package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTikTok(t *testing.T, handler http.Handler) *TikTok {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tk := NewTikTokWithBaseURL(srv.Client(), srv.URL)
	tk.http.retry.MaxRetries = 0
	return tk
}

func TestTikTokFetchOwnChannelID(t *testing.T) {
	tk := newTestTikTok(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/info/", r.URL.Path)
		w.Write([]byte(`{"data": {"user": {"open_id": "open-1", "display_name": "demo"}}, "error": {"code": "ok"}}`))
	}))

	id, err := tk.FetchOwnChannelID(context.Background(), "tok")

	assert.NoError(t, err)
	assert.Equal(t, "open-1", id)
}

func TestTikTokFetchChannelStats(t *testing.T) {
	tk := newTestTikTok(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"user": {
			"open_id": "open-1",
			"display_name": "demo",
			"follower_count": 250,
			"video_count": 12
		}}, "error": {"code": "ok"}}`))
	}))

	stats, err := tk.FetchChannelStats(context.Background(), "tok", "open-1")

	require.NoError(t, err)
	assert.Equal(t, "demo", stats.Title)
	assert.Equal(t, int64(250), stats.Subscribers)
	assert.Equal(t, int64(12), stats.VideoCount)
}

func TestTikTokListChannelVideosFollowsCursor(t *testing.T) {
	tk := newTestTikTok(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/list/", r.URL.Path)

		var body struct {
			MaxCount int   `json:"max_count"`
			Cursor   int64 `json:"cursor"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 20, body.MaxCount)

		if body.Cursor == 0 {
			w.Write([]byte(`{"data": {"videos": [{"id": "v1", "title": "a", "create_time": 1718000000}], "cursor": 99, "has_more": true}, "error": {"code": "ok"}}`))
			return
		}
		assert.Equal(t, int64(99), body.Cursor)
		w.Write([]byte(`{"data": {"videos": [{"id": "v2", "title": "b", "create_time": 1718100000}], "has_more": false}, "error": {"code": "ok"}}`))
	}))

	stubs, err := tk.ListChannelVideos(context.Background(), "tok", "open-1")

	require.NoError(t, err)
	require.Len(t, stubs, 2)
	assert.Equal(t, "v1", stubs[0].VideoID)
	assert.Equal(t, "v2", stubs[1].VideoID)
}

func TestTikTokFetchVideoStatsBatch(t *testing.T) {
	tk := newTestTikTok(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/video/query/", r.URL.Path)
		w.Write([]byte(`{"data": {"videos": [
			{"id": "v1", "view_count": 100, "like_count": 10, "comment_count": 3}
		]}, "error": {"code": "ok"}}`))
	}))

	stats, err := tk.FetchVideoStatsBatch(context.Background(), "tok", []string{"v1"})

	require.NoError(t, err)
	assert.Equal(t, VideoStats{Views: 100, Likes: 10, Comments: 3}, stats["v1"])
}

func TestTikTokAPIErrorCode(t *testing.T) {
	tk := newTestTikTok(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}, "error": {"code": "access_token_invalid", "message": "bad token"}}`))
	}))

	_, err := tk.FetchOwnChannelID(context.Background(), "tok")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access_token_invalid")
}

func TestTikTokAnalyticsUnsupported(t *testing.T) {
	tk := NewTikTok(nil)
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	days, err := tk.FetchAnalyticsDaily(context.Background(), "tok", "open-1", from, to)
	assert.NoError(t, err)
	assert.Empty(t, days)

	demos, err := tk.FetchAudienceDemographics(context.Background(), "tok", "open-1", from, to)
	assert.NoError(t, err)
	assert.Empty(t, demos)
}
