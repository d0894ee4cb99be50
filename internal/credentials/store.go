package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"statsync/internal/db"
	"statsync/internal/models"
)

// expirySkew is subtracted from a credential's expiry before trusting it. A
// token about to expire mid-pipeline is useless, so refresh a little early.
const expirySkew = 5 * time.Minute

// RefreshError means a token refresh failed or returned no usable access
// token. It is permanent until the user re-authenticates and is not retried
// within a run.
type RefreshError struct {
	Provider string
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("credential refresh failed for provider %s: %v", e.Provider, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Store validates and refreshes OAuth token material. It is the only writer
// of token fields outside the OAuth callback flow, and it is passed
// explicitly into the scheduler and pipeline rather than living as package
// state.
type Store struct {
	client *http.Client

	mu      sync.Mutex
	refresh map[int64]*sync.Mutex
	runs    map[int64]*sync.Mutex
}

func NewStore(client *http.Client) *Store {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Store{
		client:  client,
		refresh: make(map[int64]*sync.Mutex),
		runs:    make(map[int64]*sync.Mutex),
	}
}

func (s *Store) mutexFor(m map[int64]*sync.Mutex, id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := m[id]
	if !ok {
		mu = &sync.Mutex{}
		m[id] = mu
	}
	return mu
}

// AcquireRun blocks until no other sync run holds the given credential, then
// returns a release func. The scheduler and the on-demand trigger both take
// this lock, so two workers never run the pipeline for the same credential
// concurrently.
func (s *Store) AcquireRun(credentialID int64) func() {
	mu := s.mutexFor(s.runs, credentialID)
	mu.Lock()
	return mu.Unlock
}

// EnsureValid returns a usable access token for the credential, refreshing it
// first when the stored one is expired or about to expire. On a successful
// refresh the credential is updated in place and persisted; on failure the
// stored fields are left untouched.
func (s *Store) EnsureValid(ctx context.Context, cred *models.Credential) (string, error) {
	// The credential is read and written only under its own mutex, which
	// also collapses racing callers into a single refresh call.
	mu := s.mutexFor(s.refresh, cred.ID)
	mu.Lock()
	defer mu.Unlock()

	if time.Now().Before(cred.Expiry.Add(-expirySkew)) {
		return cred.AccessToken, nil
	}

	token, err := s.refreshToken(ctx, cred)
	if err != nil {
		return "", &RefreshError{Provider: cred.Provider, Err: err}
	}
	return token, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Store) refreshToken(ctx context.Context, cred *models.Credential) (string, error) {
	form := url.Values{
		"client_id":     {cred.ClientID},
		"client_secret": {cred.ClientSecret},
		"refresh_token": {cred.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("refresh returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("refresh response contained no access_token")
	}

	expiresIn := tr.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}

	cred.AccessToken = tr.AccessToken
	cred.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	// Providers are not required to rotate refresh tokens; keep the stored
	// one unless a new one was supplied.
	if tr.RefreshToken != "" {
		cred.RefreshToken = tr.RefreshToken
	}

	if err := db.UpdateCredentialToken(cred.ID, cred.AccessToken, cred.RefreshToken, cred.Expiry); err != nil {
		log.Printf("Error persisting refreshed token for credential %d: %v", cred.ID, err)
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	log.Printf("Refreshed %s token for user %d", cred.Provider, cred.UserID)
	return cred.AccessToken, nil
}
