package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"channelcast/internal/models"
)

const userColumns = "id, external_id, is_guest, created_at, updated_at"

// UpsertAuthenticatedUser inserts or updates the permanent owner keyed on the external identity.
func UpsertAuthenticatedUser(ctx context.Context, externalID string) (*models.User, error) {
	query := `
		INSERT INTO users (id, external_id, is_guest)
		VALUES ($1, $2, false)
		ON CONFLICT (external_id) DO UPDATE SET
			is_guest = false,
			updated_at = NOW()
		RETURNING ` + userColumns
	user := &models.User{}
	if err := DB.GetContext(ctx, user, query, uuid.NewString(), externalID); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

// CreateGuestUser inserts a new anonymous owner.
func CreateGuestUser(ctx context.Context) (*models.User, error) {
	query := `
		INSERT INTO users (id, is_guest)
		VALUES ($1, true)
		RETURNING ` + userColumns
	user := &models.User{}
	if err := DB.GetContext(ctx, user, query, uuid.NewString()); err != nil {
		return nil, fmt.Errorf("create guest user: %w", err)
	}
	return user, nil
}

// DeleteExpiredGuests removes guest owners created before cutoff that own no channels.
func DeleteExpiredGuests(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM users u
		WHERE u.is_guest = true
			AND u.created_at < $1
			AND NOT EXISTS (SELECT 1 FROM channels c WHERE c.user_id = u.id)
	`
	res, err := DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired guests: %w", err)
	}
	return res.RowsAffected()
}
