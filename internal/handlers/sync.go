package handlers

import (
	"log"
	"net/http"

	"statsync/internal/db"
	"statsync/internal/models"
	"statsync/pkg/tasks"
)

// PostSync queues a sync run for the authenticated user's credential with
// the given provider. The run itself happens in the worker; the response
// only acknowledges the queued task.
func (h *Handlers) PostSync(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = models.ProviderGoogle
	}

	cred, err := db.GetCredential(user.ID, provider)
	if err != nil {
		http.Error(w, "No linked account for provider", http.StatusNotFound)
		return
	}

	task, err := tasks.NewSyncAccountTask(cred.ID)
	if err != nil {
		log.Printf("Error creating sync task: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		log.Printf("Error enqueuing sync task: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "queued",
		"task_id": info.ID,
	})
}
