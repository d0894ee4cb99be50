// Package provider wraps the social platform APIs behind a typed client.
// Responses are translated into internal records at this boundary; raw
// provider JSON never leaves the package.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"statsync/internal/retry"
)

// MaxBatchSize is the largest id list accepted by FetchVideoStatsBatch,
// matching the YouTube API limit.
const MaxBatchSize = 50

// ErrNoChannel means the authenticated account owns no channel. Terminal for
// that user's run.
var ErrNoChannel = errors.New("no channel found for authenticated user")

// APIError is any non-2xx response from a provider data endpoint.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API returned status %d: %s", e.Status, e.Body)
}

// IsRetryable reports whether an error is a rate limit or server-side
// failure worth retrying. Network-level errors are retryable too.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// ChannelStats is the current snapshot of a channel's headline counters.
type ChannelStats struct {
	Title       string
	Description string
	Subscribers int64
	Views       int64
	VideoCount  int64
}

// VideoStub identifies one video found during enumeration.
type VideoStub struct {
	VideoID     string
	Title       string
	PublishedAt time.Time
}

// VideoStats is the cumulative counters for one video.
type VideoStats struct {
	Views    int64
	Likes    int64
	Comments int64
}

// AnalyticsDay is one day of the channel analytics report.
type AnalyticsDay struct {
	Date              time.Time
	Views             int64
	SubscribersGained int64
	SubscribersLost   int64
	WatchedMinutes    int64
	Likes             int64
	Comments          int64
}

// Demographic is one slice of the audience distribution.
type Demographic struct {
	AgeGroup         string
	Gender           string
	ViewerPercentage float64
}

// Client is the per-provider API surface the sync pipeline runs against.
type Client interface {
	Name() string
	FetchOwnChannelID(ctx context.Context, token string) (string, error)
	FetchChannelStats(ctx context.Context, token, channelID string) (*ChannelStats, error)
	ListChannelVideos(ctx context.Context, token, channelID string) ([]VideoStub, error)
	FetchVideoStatsBatch(ctx context.Context, token string, ids []string) (map[string]VideoStats, error)
	FetchAnalyticsDaily(ctx context.Context, token, channelID string, from, to time.Time) ([]AnalyticsDay, error)
	FetchAudienceDemographics(ctx context.Context, token, channelID string, from, to time.Time) ([]Demographic, error)
}

// httpClient is the transport shared by the concrete providers: one token
// bucket per provider plus bounded retry on 429/5xx.
type httpClient struct {
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.Config
}

func newHTTPClient(client *http.Client, rps float64) *httpClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &httpClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   retry.DefaultConfig(),
	}
}

// do issues the request built by build, retrying transient failures. build
// is called once per attempt since request bodies cannot be replayed.
func (h *httpClient) do(ctx context.Context, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, h.retry, IsRetryable, func(ctx context.Context) error {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := build(ctx)
		if err != nil {
			return err
		}
		resp, err := h.client.Do(req)
		if err != nil {
			return fmt.Errorf("provider request failed: %w", err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read provider response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
		body = b
		return nil
	})
	return body, err
}

func bearerRequest(ctx context.Context, method, url, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}
