package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"statsync/internal/db"
	"statsync/internal/handlers"
	"statsync/internal/middleware"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

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

	h := handlers.New(client)
	rateLimiter := middleware.NewRateLimiterMiddleware(1, 5)

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware, rateLimiter.Middleware)
	api.HandleFunc("/channels", h.GetChannels).Methods(http.MethodGet)
	api.HandleFunc("/channels/{channelID}/snapshots", h.GetChannelSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/channels/{channelID}/videos", h.GetChannelVideos).Methods(http.MethodGet)
	api.HandleFunc("/channels/{channelID}/demographics", h.GetChannelDemographics).Methods(http.MethodGet)
	api.HandleFunc("/sync", h.PostSync).Methods(http.MethodPost)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on :%s (commit: %s)", port, CommitSHA)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
