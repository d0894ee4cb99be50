// Package handlers exposes the read/trigger API. It only reads the synced
// tables and enqueues sync runs; all writes to stats happen in the worker.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"statsync/internal/models"
	"statsync/pkg/tasks"
)

type Handlers struct {
	asynqClient tasks.TaskEnqueuer
}

func New(asynqClient tasks.TaskEnqueuer) *Handlers {
	return &Handlers{asynqClient: asynqClient}
}

func currentUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(models.UserContextKey).(*models.User)
	return user, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
