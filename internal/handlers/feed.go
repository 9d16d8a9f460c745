package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"channelcast/internal/db"
	"channelcast/internal/feed"
)

func (h *Handlers) GetRSSFeed(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelId"]

	channel, err := db.GetChannelByID(r.Context(), channelID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	episodes, err := db.GetReadyEpisodesByChannelID(r.Context(), channelID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rss, err := feed.GenerateRSS(channel, episodes, feed.BaseURL(h.baseURL, r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}

// Healthz reports whether the generation worker is reachable.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	res := h.prober.Probe(r.Context())
	if res.HTTPStatus >= http.StatusInternalServerError {
		h.log.Warn("worker health check failed", "status", res.Status, "message", res.Message)
	}
	writeJSON(w, res.HTTPStatus, res)
}
