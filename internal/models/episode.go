package models

import (
	"strings"
	"time"
)

const (
	EpisodeStatusPending = "PENDING"
	EpisodeStatusReady   = "READY"
	EpisodeStatusFailed  = "FAILED"
)

// Episode rows are written by the generation worker and only read here.
type Episode struct {
	ID          string    `db:"id" json:"id"`
	ChannelID   string    `db:"channel_id" json:"channelId"`
	Status      string    `db:"status" json:"status"`
	Error       *string   `db:"error" json:"error"`
	Script      *string   `db:"script" json:"script"`
	AudioKey    *string   `db:"audio_key" json:"audioKey"`
	DurationSec *int      `db:"duration_sec" json:"durationSec"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// IsTerminal reports whether the worker has finished with the episode.
func IsTerminal(status string) bool {
	return status == EpisodeStatusReady || status == EpisodeStatusFailed
}

// StoredAudioKey returns the trimmed object key, or "" when the audio is not available yet.
func (e Episode) StoredAudioKey() string {
	if e.AudioKey == nil {
		return ""
	}
	return strings.TrimSpace(*e.AudioKey)
}

// EpisodeStatus is the read-only status view polled by clients.
type EpisodeStatus struct {
	Status      string  `json:"status"`
	Error       *string `json:"error"`
	Script      *string `json:"script"`
	AudioKey    *string `json:"audioKey"`
	DurationSec *int    `json:"durationSec"`
}

func (e Episode) StatusView() EpisodeStatus {
	return EpisodeStatus{
		Status:      e.Status,
		Error:       e.Error,
		Script:      e.Script,
		AudioKey:    e.AudioKey,
		DurationSec: e.DurationSec,
	}
}

// ChannelWithEpisodes is a channel together with its episodes, newest first.
type ChannelWithEpisodes struct {
	Channel
	Episodes []Episode `json:"episodes"`
}
