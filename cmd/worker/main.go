package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"statsync/internal/credentials"
	"statsync/internal/db"
	"statsync/internal/models"
	"statsync/internal/provider"
	syncer "statsync/internal/sync"
	"statsync/internal/worker"
	"statsync/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer client.Close()

	credStore := credentials.NewStore(nil)
	clients := map[string]provider.Client{
		models.ProviderGoogle: provider.NewGoogle(nil),
		models.ProviderTikTok: provider.NewTikTok(nil),
	}
	pipeline := syncer.NewPipeline(credStore, clients, envInt("SYNC_ANALYTICS_WINDOW_DAYS", syncer.DefaultAnalyticsWindowDays))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			// Per-credential run locks already keep workers off the same
			// account, so a few concurrent syncs are safe.
			Concurrency: envInt("SYNC_CONCURRENCY", 2),
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5min, 10min, 20min, ... capped at 24h.
				delay := 5 * time.Minute
				maxDelay := 24 * time.Hour
				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}
				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(client, pipeline)

	mux.HandleFunc(tasks.TypeSyncAllAccounts, taskHandler.HandleSyncAllAccountsTask)
	mux.HandleFunc(tasks.TypeSyncAccount, taskHandler.HandleSyncAccountTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
