package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"statsync/internal/db"
	"statsync/internal/models"
)

// GetChannels lists the authenticated user's synced channels.
func (h *Handlers) GetChannels(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	channels, err := db.GetChannelsByUserID(user.ID)
	if err != nil {
		log.Printf("Error getting channels: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, channels)
}

// ownedChannel loads the channel from the URL and checks it belongs to the
// requesting user.
func ownedChannel(w http.ResponseWriter, r *http.Request) (*models.Channel, bool) {
	user, ok := currentUser(r)
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return nil, false
	}

	channelID := mux.Vars(r)["channelID"]
	channel, err := db.GetChannelByChannelID(channelID)
	if err != nil {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return nil, false
	}
	if channel.UserID != user.ID {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return nil, false
	}
	return channel, true
}

// windowDays reads a ?days= query parameter, defaulting to 30.
func windowDays(r *http.Request) int {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		return 30
	}
	return days
}

// GetChannelSnapshots returns the channel's daily snapshots for the window.
func (h *Handlers) GetChannelSnapshots(w http.ResponseWriter, r *http.Request) {
	channel, ok := ownedChannel(w, r)
	if !ok {
		return
	}

	to := time.Now()
	from := to.AddDate(0, 0, -windowDays(r))
	snapshots, err := db.GetChannelDailySnapshots(channel.ChannelID, from, to)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snapshots)
}

// GetChannelVideos returns the channel's tracked videos with their last
// observed counters.
func (h *Handlers) GetChannelVideos(w http.ResponseWriter, r *http.Request) {
	channel, ok := ownedChannel(w, r)
	if !ok {
		return
	}

	videos, err := db.GetVideosByChannelID(channel.ChannelID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, videos)
}

// GetChannelDemographics returns the channel's current audience
// distribution.
func (h *Handlers) GetChannelDemographics(w http.ResponseWriter, r *http.Request) {
	channel, ok := ownedChannel(w, r)
	if !ok {
		return
	}

	demos, err := db.GetDemographicsByChannelID(channel.ChannelID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, demos)
}
