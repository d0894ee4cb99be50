package sync

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"statsync/internal/db"
	"statsync/internal/models"
)

// CredentialOutcome is one user's share of a batch run.
type CredentialOutcome struct {
	CredentialID int64
	UserID       int64
	Provider     string
	Result       *Result
	Err          error
}

// Report summarizes a batch run over all stored credentials.
type Report struct {
	Succeeded int
	Failed    int
	Outcomes  []CredentialOutcome
}

// Scheduler runs the pipeline over every stored credential. One user's
// failure never stops the rest of the batch; the per-credential run lock in
// the credential store keeps concurrent workers off the same credential.
type Scheduler struct {
	pipeline    *Pipeline
	concurrency int
}

func NewScheduler(pipeline *Pipeline, concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{pipeline: pipeline, concurrency: concurrency}
}

// RunAll syncs every stored credential and reports per-user outcomes.
func (s *Scheduler) RunAll(ctx context.Context) (*Report, error) {
	creds, err := db.GetAllCredentials()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range creds {
		cred := creds[i]
		g.Go(func() error {
			outcome := s.runOne(ctx, &cred)

			mu.Lock()
			defer mu.Unlock()
			report.Outcomes = append(report.Outcomes, outcome)
			if outcome.Err != nil {
				report.Failed++
			} else {
				report.Succeeded++
			}
			// Errors stay inside the outcome so the batch keeps going.
			return nil
		})
	}

	g.Wait()

	log.Printf("Batch sync finished: %d succeeded, %d failed of %d credentials",
		report.Succeeded, report.Failed, len(creds))
	return report, nil
}

func (s *Scheduler) runOne(ctx context.Context, cred *models.Credential) (outcome CredentialOutcome) {
	outcome = CredentialOutcome{
		CredentialID: cred.ID,
		UserID:       cred.UserID,
		Provider:     cred.Provider,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic syncing credential %d: %v", cred.ID, r)
			outcome.Err = &panicError{value: r}
		}
	}()

	result, err := s.pipeline.Run(ctx, cred)
	outcome.Result = result
	outcome.Err = err
	if err != nil {
		log.Printf("Failed to sync %s stats for user %d: %v", cred.Provider, cred.UserID, err)
	}
	return outcome
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("sync panicked: %v", e.value)
}
