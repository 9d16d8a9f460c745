package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"channelcast/internal/apierr"
	"channelcast/internal/dispatch"
	"channelcast/internal/health"
	"channelcast/internal/identity"
	"channelcast/internal/logger"
	"channelcast/internal/media"
	"channelcast/internal/middleware"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	resolver   *identity.Resolver
	dispatcher dispatch.Dispatcher
	broker     *media.Broker
	prober     *health.Prober
	limiter    *middleware.RateLimiter
	baseURL    string
	log        *logger.Logger
}

func New(
	resolver *identity.Resolver,
	dispatcher dispatch.Dispatcher,
	broker *media.Broker,
	prober *health.Prober,
	limiter *middleware.RateLimiter,
	baseURL string,
	log *logger.Logger,
) *Handlers {
	return &Handlers{
		resolver:   resolver,
		dispatcher: dispatcher,
		broker:     broker,
		prober:     prober,
		limiter:    limiter,
		baseURL:    baseURL,
		log:        log,
	}
}

// Register mounts every dashboard route on r. Routes sit directly on r rather than
// on a /api subrouter: a subrouter's shared prefix matcher drops method mismatches,
// turning 405 into 404.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/api/channels", h.ListChannels).Methods(http.MethodGet)
	r.HandleFunc("/api/channels", h.CreateChannel).Methods(http.MethodPost)
	r.HandleFunc("/api/channels/{id}", h.GetChannel).Methods(http.MethodGet)
	r.HandleFunc("/api/channels/{id}/episodes", h.ListEpisodes).Methods(http.MethodGet)
	r.HandleFunc("/api/channels/{id}/episodes", h.CreateEpisode).Methods(http.MethodPost)
	r.HandleFunc("/api/channels/{id}/generate", h.Generate).Methods(http.MethodPost)

	r.HandleFunc("/api/episodes/{id}/status", h.EpisodeStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/episodes/{id}/playback-url", h.PlaybackURL).Methods(http.MethodGet)
	r.HandleFunc("/api/episodes/{id}/audio", h.Audio).Methods(http.MethodGet)

	r.HandleFunc("/api/healthz", h.Healthz).Methods(http.MethodGet)

	r.HandleFunc("/rss/{channelId}", h.GetRSSFeed).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error": message}. Unclassified errors are logged and hidden.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierr.HTTPStatus(err)
	msg := apierr.Message(err)

	var classified *apierr.Error
	if !errors.As(err, &classified) {
		msg = "Internal server error"
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"request_id", middleware.RequestID(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.Wrap(apierr.KindInvalid, err, "invalid request")
	}
	return nil
}
