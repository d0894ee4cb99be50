// Package sync pulls channel, video, analytics and demographics data from
// the providers into local storage.
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"statsync/internal/credentials"
	"statsync/internal/db"
	"statsync/internal/models"
	"statsync/internal/provider"
)

// DefaultAnalyticsWindowDays is the trailing window queried from the
// analytics report on each run.
const DefaultAnalyticsWindowDays = 30

// Result describes one pipeline run. A non-empty Errors slice with a nil
// returned error means a degraded-but-recorded run: everything that could be
// stored was stored.
type Result struct {
	RunID          string
	Provider       string
	ChannelID      string
	StepsCompleted int
	VideosSynced   int
	FailedBatches  int
	Errors         []error
}

// Pipeline runs the ordered sync steps for one credential at a time.
type Pipeline struct {
	creds      *credentials.Store
	clients    map[string]provider.Client
	windowDays int
	now        func() time.Time
}

func NewPipeline(creds *credentials.Store, clients map[string]provider.Client, windowDays int) *Pipeline {
	if windowDays <= 0 {
		windowDays = DefaultAnalyticsWindowDays
	}
	return &Pipeline{
		creds:      creds,
		clients:    clients,
		windowDays: windowDays,
		now:        time.Now,
	}
}

// Run executes the sync state machine for one credential. Steps 1-3 abort
// the run on failure; step 4 failures are isolated per batch; steps 5 and 6
// are isolated from each other and from everything before them. Writes
// already committed before an abort are kept: re-running overwrites today's
// snapshots, so a retry is always safe.
func (p *Pipeline) Run(ctx context.Context, cred *models.Credential) (*Result, error) {
	release := p.creds.AcquireRun(cred.ID)
	defer release()

	result := &Result{
		RunID:    uuid.NewString(),
		Provider: cred.Provider,
	}

	client, ok := p.clients[cred.Provider]
	if !ok {
		return result, fmt.Errorf("no client registered for provider %s", cred.Provider)
	}

	// Step 1: resolve the user's own channel.
	token, err := p.creds.EnsureValid(ctx, cred)
	if err != nil {
		return result, fmt.Errorf("resolve channel: %w", err)
	}
	channelID, err := client.FetchOwnChannelID(ctx, token)
	if err != nil {
		return result, fmt.Errorf("resolve channel: %w", err)
	}
	result.ChannelID = channelID
	if _, err := db.GetChannelByChannelID(channelID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return result, fmt.Errorf("resolve channel: %w", err)
		}
		if _, err := db.UpsertChannel(cred.UserID, cred.Provider, channelID, "", ""); err != nil {
			return result, fmt.Errorf("resolve channel: %w", err)
		}
	}
	result.StepsCompleted++

	// Step 2: channel stats and today's channel snapshot.
	today := p.now()
	stats, err := client.FetchChannelStats(ctx, token, channelID)
	if err != nil {
		return result, fmt.Errorf("channel stats: %w", err)
	}
	if _, err := db.UpsertChannel(cred.UserID, cred.Provider, channelID, stats.Title, stats.Description); err != nil {
		return result, fmt.Errorf("channel stats: %w", err)
	}
	if err := db.UpsertChannelDailyStats(channelID, today, stats.Subscribers, stats.Views, stats.VideoCount); err != nil {
		return result, fmt.Errorf("channel stats: %w", err)
	}
	result.StepsCompleted++

	// Step 3: drain the full video listing. A mid-listing failure aborts the
	// run rather than silently syncing a partial list.
	stubs, err := client.ListChannelVideos(ctx, token, channelID)
	if err != nil {
		return result, fmt.Errorf("video listing: %w", err)
	}
	result.StepsCompleted++

	// Step 4: stat batches and per-video snapshots. A failed batch is
	// recorded and skipped; the remaining batches still run.
	for start := 0; start < len(stubs); start += provider.MaxBatchSize {
		end := start + provider.MaxBatchSize
		if end > len(stubs) {
			end = len(stubs)
		}
		batch := stubs[start:end]

		ids := make([]string, len(batch))
		for i, stub := range batch {
			ids[i] = stub.VideoID
		}

		batchStats, err := client.FetchVideoStatsBatch(ctx, token, ids)
		if err != nil {
			log.Printf("Video stats batch failed for channel %s (%d ids): %v", channelID, len(ids), err)
			result.FailedBatches++
			result.Errors = append(result.Errors, fmt.Errorf("video stats batch %d: %w", start/provider.MaxBatchSize+1, err))
			continue
		}

		for _, stub := range batch {
			vs, ok := batchStats[stub.VideoID]
			if !ok {
				// Deleted or private since enumeration.
				continue
			}
			if err := db.UpsertVideo(channelID, stub.VideoID, stub.Title, stub.PublishedAt, vs.Views, vs.Likes, vs.Comments); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("video stats batch: upsert video %s: %w", stub.VideoID, err))
				continue
			}
			if err := db.UpsertVideoDailySnapshot(stub.VideoID, today, vs.Views, vs.Likes, vs.Comments); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("video stats batch: snapshot video %s: %w", stub.VideoID, err))
				continue
			}
			result.VideosSynced++
		}
	}
	result.StepsCompleted++

	from := today.AddDate(0, 0, -p.windowDays)

	// Step 5: analytics window. The report may correct past dates as the
	// provider finalizes its numbers.
	if days, err := client.FetchAnalyticsDaily(ctx, token, channelID, from, today); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("analytics window: %w", err))
	} else {
		stepOK := true
		for _, day := range days {
			if err := db.UpsertChannelDailyAnalytics(channelID, day.Date, day.Views, day.SubscribersGained, day.SubscribersLost, day.WatchedMinutes, day.Likes, day.Comments); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("analytics window: %w", err))
				stepOK = false
				break
			}
		}
		if stepOK {
			result.StepsCompleted++
		}
	}

	// Step 6: demographics full replace, independent of step 5.
	if demos, err := client.FetchAudienceDemographics(ctx, token, channelID, from, today); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("demographics: %w", err))
	} else {
		rows := make([]models.AudienceDemographic, len(demos))
		for i, d := range demos {
			rows[i] = models.AudienceDemographic{
				ChannelID:        channelID,
				AgeGroup:         d.AgeGroup,
				Gender:           d.Gender,
				ViewerPercentage: d.ViewerPercentage,
			}
		}
		if err := db.ReplaceDemographics(channelID, rows); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("demographics: %w", err))
		} else {
			result.StepsCompleted++
		}
	}

	log.Printf("Sync run %s finished for channel %s: %d steps, %d videos, %d failed batches, %d errors",
		result.RunID, channelID, result.StepsCompleted, result.VideosSynced, result.FailedBatches, len(result.Errors))
	return result, nil
}
