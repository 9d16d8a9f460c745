package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"channelcast/internal/apierr"
	"channelcast/internal/db"
	"channelcast/internal/identity"
	"channelcast/internal/models"
)

// ListChannels returns the resolved owner's channels. Signing in here also merges the
// channels of a leftover guest session.
func (h *Handlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolver.Resolve(w, r, identity.ReadOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	channels := []models.Channel{}
	if session.Resolved() {
		channels, err = db.GetChannelsByUserID(r.Context(), session.OwnerID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

type createChannelRequest struct {
	Name    any `json:"name"`
	Topic   any `json:"topic"`
	NewsURL any `json:"news_url"`
}

func (h *Handlers) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	name, _ := req.Name.(string)
	name = strings.TrimSpace(name)
	if name == "" {
		h.writeError(w, r, apierr.New(apierr.KindInvalid, "name is required"))
		return
	}
	topic, _ := req.Topic.(string)
	newsURL, _ := req.NewsURL.(string)

	session, err := h.resolver.Resolve(w, r, identity.CreateGuest)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	channel, err := db.CreateChannel(r.Context(), session.OwnerID, name, topic, newsURL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("created channel", "channel_id", channel.ID, "owner_id", session.OwnerID, "guest", !session.Authenticated)

	writeJSON(w, http.StatusCreated, map[string]any{"channel": channel.Public()})
}

func (h *Handlers) GetChannel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	channel, err := db.GetChannelByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	episodes, err := db.GetEpisodesByChannelID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channel": models.ChannelWithEpisodes{Channel: channel, Episodes: episodes},
	})
}

func (h *Handlers) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := db.GetEpisodesByChannelID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"episodes": episodes})
}

// CreateEpisode is refused: episode rows belong to the generation worker.
func (h *Handlers) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, apierr.New(apierr.KindNotImplemented, "Not Implemented: Worker-owned responsibility"))
}

// Generate forwards one generation job for the channel. The worker's acknowledgment is
// returned byte for byte.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["id"]

	session, err := h.resolver.Resolve(w, r, identity.ReadOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	key := session.OwnerID
	if key == "" {
		key = r.RemoteAddr
	}
	if !h.limiter.Allow(key) {
		h.writeError(w, r, apierr.New(apierr.KindRateLimited, "Too many generation requests"))
		return
	}

	ack, err := h.dispatcher.Dispatch(r.Context(), channelID, session.Identity.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(ack.Body)
}
