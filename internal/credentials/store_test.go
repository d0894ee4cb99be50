package credentials

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"statsync/internal/models"
	"statsync/internal/test"
)

func testCredential(endpoint string, expiry time.Time) *models.Credential {
	return &models.Credential{
		ID:            1,
		UserID:        42,
		Provider:      models.ProviderGoogle,
		AccessToken:   "T1",
		RefreshToken:  "R1",
		Expiry:        expiry,
		TokenEndpoint: endpoint,
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
	}
}

func TestEnsureValidReusesFreshToken(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	store := NewStore(srv.Client())
	cred := testCredential(srv.URL, time.Now().Add(time.Hour))

	token, err := store.EnsureValid(context.Background(), cred)

	assert.NoError(t, err)
	assert.Equal(t, "T1", token)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "a fresh token must not trigger a refresh call")
}

func TestEnsureValidRefreshesExpiredToken(t *testing.T) {
	_, mock := test.NewMockDB(t)
	mock.ExpectExec(`UPDATE credentials`).
		WithArgs("T2", "R1", sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "R1", r.Form.Get("refresh_token"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, "client-secret", r.Form.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		// No refresh_token in the response: the stored one must survive.
		w.Write([]byte(`{"access_token": "T2", "expires_in": 3600}`))
	}))
	defer srv.Close()

	store := NewStore(srv.Client())
	cred := testCredential(srv.URL, time.Now().Add(-time.Minute))

	token, err := store.EnsureValid(context.Background(), cred)

	assert.NoError(t, err)
	assert.Equal(t, "T2", token)
	assert.Equal(t, "T2", cred.AccessToken)
	assert.Equal(t, "R1", cred.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), cred.Expiry, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureValidRotatesRefreshToken(t *testing.T) {
	_, mock := test.NewMockDB(t)
	mock.ExpectExec(`UPDATE credentials`).
		WithArgs("T2", "R2", sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "T2", "expires_in": 1800, "refresh_token": "R2"}`))
	}))
	defer srv.Close()

	store := NewStore(srv.Client())
	cred := testCredential(srv.URL, time.Now().Add(-time.Minute))

	_, err := store.EnsureValid(context.Background(), cred)

	assert.NoError(t, err)
	assert.Equal(t, "R2", cred.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureValidRefreshWithinSkew(t *testing.T) {
	_, mock := test.NewMockDB(t)
	mock.ExpectExec(`UPDATE credentials`).
		WithArgs("T2", "R1", sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "T2", "expires_in": 3600}`))
	}))
	defer srv.Close()

	store := NewStore(srv.Client())
	// Expires in 2 minutes, inside the 5 minute skew window.
	cred := testCredential(srv.URL, time.Now().Add(2*time.Minute))

	token, err := store.EnsureValid(context.Background(), cred)

	assert.NoError(t, err)
	assert.Equal(t, "T2", token)
}

func TestEnsureValidFailureLeavesTokenUntouched(t *testing.T) {
	test.NewMockDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	store := NewStore(srv.Client())
	cred := testCredential(srv.URL, time.Now().Add(-time.Minute))

	_, err := store.EnsureValid(context.Background(), cred)

	var refreshErr *RefreshError
	assert.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, models.ProviderGoogle, refreshErr.Provider)
	assert.Equal(t, "T1", cred.AccessToken)
	assert.Equal(t, "R1", cred.RefreshToken)
}

func TestEnsureValidRejectsEmptyAccessToken(t *testing.T) {
	test.NewMockDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"expires_in": 3600}`))
	}))
	defer srv.Close()

	store := NewStore(srv.Client())
	cred := testCredential(srv.URL, time.Now().Add(-time.Minute))

	_, err := store.EnsureValid(context.Background(), cred)

	var refreshErr *RefreshError
	assert.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, "T1", cred.AccessToken)
}

func TestEnsureValidConcurrentRefreshSingleCall(t *testing.T) {
	_, mock := test.NewMockDB(t)
	mock.ExpectExec(`UPDATE credentials`).
		WithArgs("T2", "R1", sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"access_token": "T2", "expires_in": 3600}`))
	}))
	defer srv.Close()

	store := NewStore(srv.Client())
	cred := testCredential(srv.URL, time.Now().Add(-time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := store.EnsureValid(context.Background(), cred)
			assert.NoError(t, err)
			assert.Equal(t, "T2", token)
		}()
	}
	wg.Wait()

	// The double-check under the per-credential lock should collapse the
	// racing callers into one network refresh.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAcquireRunIsExclusivePerCredential(t *testing.T) {
	store := NewStore(nil)

	release := store.AcquireRun(7)
	acquired := make(chan struct{})
	go func() {
		r := store.AcquireRun(7)
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the first holds the lock")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire should proceed after release")
	}
}

func TestRefreshErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &RefreshError{Provider: models.ProviderTikTok, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "tiktok")
}
