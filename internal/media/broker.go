// Package media brokers short-lived signed links to generated episode audio.
package media

import (
	"context"
	"time"

	"channelcast/internal/apierr"
	"channelcast/internal/db"
	"channelcast/internal/logger"
	"channelcast/internal/metrics"
	"channelcast/internal/models"
	"channelcast/internal/storage"
)

const (
	DefaultTTL      = 900 * time.Second
	logURLPrefixLen = 60
)

// PlaybackURL is a signed link and the instant it stops working. It is never persisted.
type PlaybackURL struct {
	URL       string    `json:"playbackUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EpisodeLookup loads an episode or returns an apierr not-found error.
type EpisodeLookup func(ctx context.Context, id string) (models.Episode, error)

// Broker signs playback links for READY episodes.
type Broker struct {
	store    storage.ObjectStore
	storeErr error
	ttl      time.Duration
	lookup   EpisodeLookup
	now      func() time.Time
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewBroker builds a broker. When store is nil, storeErr explains the missing configuration
// and every request fails with a misconfiguration error.
func NewBroker(store storage.ObjectStore, storeErr error, ttl time.Duration, log *logger.Logger, m *metrics.Metrics) *Broker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Broker{
		store:    store,
		storeErr: storeErr,
		ttl:      ttl,
		lookup:   db.GetEpisodeByID,
		now:      time.Now,
		log:      log,
		metrics:  m,
	}
}

func (b *Broker) WithLookup(lookup EpisodeLookup) *Broker {
	b.lookup = lookup
	return b
}

func (b *Broker) WithClock(now func() time.Time) *Broker {
	b.now = now
	return b
}

// PlaybackURL signs a fresh link for the episode's audio object.
func (b *Broker) PlaybackURL(ctx context.Context, episodeID string) (PlaybackURL, error) {
	out, err := b.playbackURL(ctx, episodeID)
	result := "ok"
	if err != nil {
		result = apierr.KindOf(err).String()
	}
	b.metrics.PlaybackURLs.WithLabelValues(result).Inc()
	return out, err
}

func (b *Broker) playbackURL(ctx context.Context, episodeID string) (PlaybackURL, error) {
	if episodeID == "" {
		return PlaybackURL{}, apierr.New(apierr.KindInvalid, "episodeId is required")
	}
	if b.store == nil {
		b.log.Error("object storage is not configured", "error", b.storeErr)
		return PlaybackURL{}, apierr.Misconfigured("AWS env vars are missing")
	}

	episode, err := b.lookup(ctx, episodeID)
	if err != nil {
		return PlaybackURL{}, err
	}
	key := episode.StoredAudioKey()
	if key == "" {
		return PlaybackURL{}, apierr.New(apierr.KindNotReady, "Episode not ready (no audioKey)")
	}

	b.log.Info("episode playback presign request", "episode_id", episodeID, "audio_key", key, "ttl_seconds", int(b.ttl.Seconds()))
	issuedAt := b.now()
	signed, err := b.store.PresignGet(ctx, key, b.ttl)
	if err != nil {
		return PlaybackURL{}, err
	}
	b.log.Info("episode playback presign issued", "episode_id", episodeID, "url_prefix", prefix(signed, logURLPrefixLen))

	return PlaybackURL{URL: signed, ExpiresAt: issuedAt.Add(b.ttl).UTC()}, nil
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
