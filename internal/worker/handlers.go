package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"statsync/internal/credentials"
	"statsync/internal/db"
	"statsync/internal/provider"
	syncer "statsync/internal/sync"
	"statsync/pkg/tasks"
)

type TaskHandler struct {
	asynqClient tasks.TaskEnqueuer
	pipeline    *syncer.Pipeline
}

func NewTaskHandler(client tasks.TaskEnqueuer, pipeline *syncer.Pipeline) *TaskHandler {
	return &TaskHandler{asynqClient: client, pipeline: pipeline}
}

// HandleSyncAllAccountsTask fans out one sync task per stored credential so
// each user's run fails or succeeds on its own.
func (h *TaskHandler) HandleSyncAllAccountsTask(ctx context.Context, t *asynq.Task) error {
	log.Println("Queueing sync for all accounts...")

	creds, err := db.GetAllCredentials()
	if err != nil {
		return fmt.Errorf("failed to get credentials: %w", err)
	}

	for _, cred := range creds {
		task, err := tasks.NewSyncAccountTask(cred.ID)
		if err != nil {
			log.Printf("failed to create sync task for credential %d: %v", cred.ID, err)
			continue
		}

		_, err = h.asynqClient.Enqueue(task)
		if err != nil {
			log.Printf("failed to enqueue sync task for credential %d: %v", cred.ID, err)
			continue
		}
	}

	log.Printf("Queued sync for %d accounts", len(creds))
	return nil
}

// HandleSyncAccountTask runs the full pipeline for one credential. Terminal
// conditions (dead refresh token, no owned channel) are not retried; the
// user has to re-authenticate first.
func (h *TaskHandler) HandleSyncAccountTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.SyncAccountTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Syncing stats for credential: %d", p.CredentialID)

	cred, err := db.GetCredentialByID(p.CredentialID)
	if err != nil {
		return fmt.Errorf("failed to get credential by id: %w", err)
	}

	result, err := h.pipeline.Run(ctx, cred)
	if err != nil {
		var refreshErr *credentials.RefreshError
		if errors.As(err, &refreshErr) || errors.Is(err, provider.ErrNoChannel) {
			log.Printf("Terminal sync failure for credential %d: %v", p.CredentialID, err)
			return fmt.Errorf("terminal sync failure: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("sync run failed: %w", err)
	}

	if len(result.Errors) > 0 {
		log.Printf("Sync run %s for credential %d degraded: %d errors, %d failed batches",
			result.RunID, p.CredentialID, len(result.Errors), result.FailedBatches)
	}
	return nil
}
