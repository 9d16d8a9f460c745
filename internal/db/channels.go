package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"channelcast/internal/models"
)

const channelColumns = "id, user_id, name, topic, news_url, created_at"

// GetChannelsByUserID lists an owner's channels, newest first.
func GetChannelsByUserID(ctx context.Context, userID string) ([]models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE user_id = $1 ORDER BY created_at DESC`
	channels := []models.Channel{}
	if err := DB.SelectContext(ctx, &channels, query, userID); err != nil {
		return nil, fmt.Errorf("list channels for user %s: %w", userID, err)
	}
	return channels, nil
}

// GetChannelByID returns a channel or an apierr not-found error.
func GetChannelByID(ctx context.Context, id string) (models.Channel, error) {
	channel := models.Channel{}
	err := DB.GetContext(ctx, &channel, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	if err != nil {
		return models.Channel{}, notFound(err, "Channel")
	}
	return channel, nil
}

// CreateChannel inserts a channel owned by userID.
func CreateChannel(ctx context.Context, userID, name, topic, newsURL string) (models.Channel, error) {
	query := `
		INSERT INTO channels (id, user_id, name, topic, news_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + channelColumns
	channel := models.Channel{}
	if err := DB.GetContext(ctx, &channel, query, uuid.NewString(), userID, name, topic, newsURL); err != nil {
		return models.Channel{}, fmt.Errorf("create channel: %w", err)
	}
	return channel, nil
}

// ReassignChannels moves every channel owned by the guest fromUserID to toUserID.
// Channels of a non-guest owner are never moved. Running it again once nothing is
// left under fromUserID changes nothing.
func ReassignChannels(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	query := `UPDATE channels SET user_id = $1 WHERE user_id = $2 ` +
		`AND EXISTS (SELECT 1 FROM users u WHERE u.id = $2 AND u.is_guest = true)`
	res, err := DB.ExecContext(ctx, query, toUserID, fromUserID)
	if err != nil {
		return 0, fmt.Errorf("reassign channels from %s: %w", fromUserID, err)
	}
	return res.RowsAffected()
}
