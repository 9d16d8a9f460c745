package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeGenerateEpisode = "episode:generate"
	TypePruneGuests     = "guests:prune"

	// QueueGeneration is consumed by the external generation worker.
	QueueGeneration = "generation"
)

// TaskEnqueuer is satisfied by *asynq.Client; tests substitute a recorder.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type GenerateEpisodeTaskPayload struct {
	ChannelID string `json:"channel_id"`
	EpisodeID string `json:"episode_id"`
	OwnerID   string `json:"owner_id,omitempty"`
}

// NewGenerateEpisodeTask builds a generation job. It is never retried: a failed
// dispatch has to be started again by the user.
func NewGenerateEpisodeTask(p GenerateEpisodeTaskPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateEpisode, payload, asynq.MaxRetry(0), asynq.Queue(QueueGeneration)), nil
}

func NewPruneGuestsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypePruneGuests, nil, asynq.MaxRetry(1)), nil
}
