package sync

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statsync/internal/credentials"
	"statsync/internal/models"
	"statsync/internal/provider"
	"statsync/internal/test"
)

func credentialRows(rows ...[]driverValue) *sqlmock.Rows {
	r := sqlmock.NewRows([]string{"id", "user_id", "provider", "access_token", "refresh_token", "expiry", "token_endpoint", "client_id", "client_secret", "scopes", "created_at", "updated_at"})
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

type driverValue = driver.Value

func TestRunAllIsolatesPerUserFailures(t *testing.T) {
	_, mock := test.NewMockDB(t)

	expiry := time.Now().Add(time.Hour)
	mock.ExpectQuery(`SELECT \* FROM credentials ORDER BY id`).
		WillReturnRows(credentialRows(
			[]driverValue{int64(1), int64(10), models.ProviderGoogle, "tok1", "r1", expiry, "http://token", "cid", "sec", "", time.Now(), time.Now()},
			[]driverValue{int64(2), int64(20), models.ProviderTikTok, "tok2", "r2", expiry, "http://token", "cid", "sec", "", time.Now(), time.Now()},
		))

	// Only the TikTok credential reaches the storage layer.
	mock.ExpectQuery(`SELECT \* FROM channels WHERE channel_id = \$1`).
		WillReturnRows(channelRow(20, "open-1", "demo"))
	mock.ExpectQuery(`INSERT INTO channels`).
		WillReturnRows(channelRow(20, "open-1", "demo"))
	mock.ExpectExec(`INSERT INTO channel_daily_snapshots`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM audience_demographics`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	clients := map[string]provider.Client{
		models.ProviderGoogle: &fakeClient{channelIDErr: provider.ErrNoChannel},
		models.ProviderTikTok: &fakeClient{
			channelID: "open-1",
			stats:     &provider.ChannelStats{Title: "demo", Subscribers: 5},
		},
	}
	pipeline := NewPipeline(credentials.NewStore(nil), clients, 30)
	scheduler := NewScheduler(pipeline, 1)

	report, err := scheduler.RunAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Outcomes, 2)

	byCred := make(map[int64]CredentialOutcome, 2)
	for _, o := range report.Outcomes {
		byCred[o.CredentialID] = o
	}
	assert.ErrorIs(t, byCred[1].Err, provider.ErrNoChannel)
	assert.NoError(t, byCred[2].Err)
	assert.Equal(t, "open-1", byCred[2].Result.ChannelID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAllEmptyCredentialSet(t *testing.T) {
	_, mock := test.NewMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM credentials ORDER BY id`).
		WillReturnRows(credentialRows())

	pipeline := NewPipeline(credentials.NewStore(nil), nil, 30)
	report, err := NewScheduler(pipeline, 4).RunAll(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Empty(t, report.Outcomes)
}

func TestRunAllRecoversFromPanic(t *testing.T) {
	_, mock := test.NewMockDB(t)

	expiry := time.Now().Add(time.Hour)
	mock.ExpectQuery(`SELECT \* FROM credentials ORDER BY id`).
		WillReturnRows(credentialRows(
			[]driverValue{int64(1), int64(10), models.ProviderGoogle, "tok1", "r1", expiry, "http://token", "cid", "sec", "", time.Now(), time.Now()},
		))

	// stats is nil, so step 2 dereferences a nil pointer inside the run.
	clients := map[string]provider.Client{
		models.ProviderGoogle: &panickyClient{},
	}
	pipeline := NewPipeline(credentials.NewStore(nil), clients, 30)

	report, err := NewScheduler(pipeline, 1).RunAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Outcomes, 1)
	assert.ErrorContains(t, report.Outcomes[0].Err, "panicked")
}

type panickyClient struct{ fakeClient }

func (p *panickyClient) FetchOwnChannelID(ctx context.Context, token string) (string, error) {
	panic("boom")
}
