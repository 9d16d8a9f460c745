package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"channelcast/internal/db"
	"channelcast/internal/identity"
	"channelcast/internal/logger"
)

type TaskHandler struct {
	now func() time.Time
	log *logger.Logger
}

func NewTaskHandler(log *logger.Logger) *TaskHandler {
	return &TaskHandler{now: time.Now, log: log}
}

// HandlePruneGuestsTask deletes guest owners whose session has expired and who never
// created a channel. Guests that own channels are kept so a late sign-in can still claim them.
func (h *TaskHandler) HandlePruneGuestsTask(ctx context.Context, t *asynq.Task) error {
	cutoff := h.now().Add(-identity.GuestTTL)

	deleted, err := db.DeleteExpiredGuests(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune guests: %w", err)
	}

	if deleted > 0 {
		h.log.Info("pruned expired guests", "deleted", deleted, "cutoff", cutoff)
	} else {
		h.log.Debug("no expired guests to prune", "cutoff", cutoff)
	}
	return nil
}
