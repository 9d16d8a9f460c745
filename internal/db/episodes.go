package db

import (
	"context"
	"fmt"

	"channelcast/internal/models"
)

const episodeColumns = "id, channel_id, status, error, script, audio_key, duration_sec, created_at"

// GetEpisodeByID returns an episode or an apierr not-found error.
func GetEpisodeByID(ctx context.Context, id string) (models.Episode, error) {
	episode := models.Episode{}
	err := DB.GetContext(ctx, &episode, `SELECT `+episodeColumns+` FROM episodes WHERE id = $1`, id)
	if err != nil {
		return models.Episode{}, notFound(err, "Episode")
	}
	return episode, nil
}

// GetEpisodesByChannelID lists a channel's episodes, newest first.
func GetEpisodesByChannelID(ctx context.Context, channelID string) ([]models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE channel_id = $1 ORDER BY created_at DESC`
	episodes := []models.Episode{}
	if err := DB.SelectContext(ctx, &episodes, query, channelID); err != nil {
		return nil, fmt.Errorf("list episodes for channel %s: %w", channelID, err)
	}
	return episodes, nil
}

// GetReadyEpisodesByChannelID lists episodes whose audio is available, newest first.
func GetReadyEpisodesByChannelID(ctx context.Context, channelID string) ([]models.Episode, error) {
	query := `
		SELECT ` + episodeColumns + `
		FROM episodes
		WHERE channel_id = $1 AND status = $2 AND audio_key IS NOT NULL
		ORDER BY created_at DESC
	`
	episodes := []models.Episode{}
	if err := DB.SelectContext(ctx, &episodes, query, channelID, models.EpisodeStatusReady); err != nil {
		return nil, fmt.Errorf("list ready episodes for channel %s: %w", channelID, err)
	}
	return episodes, nil
}
