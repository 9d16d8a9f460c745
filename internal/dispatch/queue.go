package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"channelcast/internal/apierr"
	"channelcast/internal/db"
	"channelcast/internal/logger"
	"channelcast/internal/metrics"
	"channelcast/internal/models"
	"channelcast/pkg/tasks"
)

// QueueDispatcher enqueues jobs on the worker's asynq queue instead of calling it over HTTP.
// The episode id is allocated here so the caller can poll it right away.
type QueueDispatcher struct {
	enqueuer tasks.TaskEnqueuer
	lookup   ChannelLookup
	newID    func() string
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewQueueDispatcher builds a queue dispatcher. A nil enqueuer is reported as a misconfiguration.
func NewQueueDispatcher(enqueuer tasks.TaskEnqueuer, log *logger.Logger, m *metrics.Metrics) *QueueDispatcher {
	return &QueueDispatcher{
		enqueuer: enqueuer,
		lookup:   db.GetChannelByID,
		newID:    uuid.NewString,
		log:      log,
		metrics:  m,
	}
}

func (d *QueueDispatcher) WithLookup(lookup ChannelLookup) *QueueDispatcher {
	d.lookup = lookup
	return d
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, channelID, token string) (JobAck, error) {
	ack, err := d.dispatch(ctx, channelID, token)
	d.metrics.Dispatches.WithLabelValues(resultLabel(err)).Inc()
	return ack, err
}

func (d *QueueDispatcher) dispatch(ctx context.Context, channelID, token string) (JobAck, error) {
	channel, err := d.lookup(ctx, channelID)
	if err != nil {
		return JobAck{}, err
	}
	if d.enqueuer == nil {
		return JobAck{}, apierr.Misconfigured("REDIS_ADDR is not set")
	}
	if strings.TrimSpace(token) == "" {
		return JobAck{}, apierr.New(apierr.KindUnauthorized, "Not authenticated")
	}

	episodeID := d.newID()
	task, err := tasks.NewGenerateEpisodeTask(tasks.GenerateEpisodeTaskPayload{
		ChannelID: channelID,
		EpisodeID: episodeID,
		OwnerID:   channel.UserID,
	})
	if err != nil {
		return JobAck{}, err
	}
	info, err := d.enqueuer.Enqueue(task)
	if err != nil {
		d.log.Error("enqueue generation job failed", "channel_id", channelID, "error", err)
		return JobAck{}, apierr.Wrap(apierr.KindUnavailable, err, err.Error())
	}

	ack := JobAck{JobID: info.ID, EpisodeID: episodeID, Status: models.EpisodeStatusPending}
	ack.Body, err = json.Marshal(map[string]string{
		"jobId":     ack.JobID,
		"episodeId": ack.EpisodeID,
		"status":    ack.Status,
	})
	if err != nil {
		return JobAck{}, err
	}
	d.log.Info("queued generation job", "channel_id", channelID, "job_id", ack.JobID, "episode_id", episodeID)
	return ack, nil
}
