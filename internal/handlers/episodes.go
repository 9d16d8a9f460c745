package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"channelcast/internal/db"
)

// EpisodeStatus is polled by clients until the episode is READY or FAILED.
func (h *Handlers) EpisodeStatus(w http.ResponseWriter, r *http.Request) {
	episode, err := db.GetEpisodeByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, episode.StatusView())
}

func (h *Handlers) PlaybackURL(w http.ResponseWriter, r *http.Request) {
	signed, err := h.broker.PlaybackURL(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

// Audio redirects to a freshly signed link. Podcast apps reach audio through here.
func (h *Handlers) Audio(w http.ResponseWriter, r *http.Request) {
	signed, err := h.broker.PlaybackURL(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, signed.URL, http.StatusFound)
}
