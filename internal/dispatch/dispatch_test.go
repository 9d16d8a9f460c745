package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelcast/internal/apierr"
	"channelcast/internal/logger"
	"channelcast/internal/metrics"
	"channelcast/internal/models"
	"channelcast/internal/test"
	"channelcast/pkg/tasks"
)

const (
	workerBase = "http://worker.internal:8000"
	jobsURL    = workerBase + "/jobs/run-from-channel"
)

func knownChannel(_ context.Context, id string) (models.Channel, error) {
	if id != "ch-1" {
		return models.Channel{}, apierr.NotFound("Channel")
	}
	return models.Channel{ID: id, UserID: "owner-1", Name: "AI Daily"}, nil
}

func newHTTPDispatcher(t *testing.T, base string) *HTTPDispatcher {
	t.Helper()
	d := NewHTTPDispatcher(base, 5*time.Second, logger.NewNop(), metrics.New()).WithLookup(knownChannel)
	httpmock.ActivateNonDefault(d.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return d
}

func TestHTTPDispatchForwardsAckVerbatim(t *testing.T) {
	d := newHTTPDispatcher(t, workerBase+"/")
	const body = `{"jobId":"job-9","episodeId":"ep-9","status":"queued","extra":{"k":1}}`

	httpmock.RegisterResponder(http.MethodPost, jobsURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(req.Body)
		assert.JSONEq(t, `{"channel_id":"ch-1"}`, string(raw))
		return httpmock.NewStringResponse(http.StatusOK, body), nil
	})

	ack, err := d.Dispatch(context.Background(), "ch-1", "tok")

	require.NoError(t, err)
	assert.Equal(t, body, string(ack.Body))
	assert.Equal(t, "job-9", ack.JobID)
	assert.Equal(t, "ep-9", ack.EpisodeID)
	assert.Equal(t, "queued", ack.Status)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPDispatchWrapsNonJSONAck(t *testing.T) {
	d := newHTTPDispatcher(t, workerBase)
	httpmock.RegisterResponder(http.MethodPost, jobsURL, httpmock.NewStringResponder(http.StatusAccepted, "accepted"))

	ack, err := d.Dispatch(context.Background(), "ch-1", "tok")

	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":"accepted"}`, string(ack.Body))
}

func TestHTTPDispatchUpstreamFailureIsNotRetried(t *testing.T) {
	d := newHTTPDispatcher(t, workerBase)
	httpmock.RegisterResponder(http.MethodPost, jobsURL, httpmock.NewStringResponder(http.StatusServiceUnavailable, "queue full"))

	_, err := d.Dispatch(context.Background(), "ch-1", "tok")

	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierr.KindUpstream, apiErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.UpstreamStatus)
	assert.Equal(t, "queue full", apiErr.UpstreamBody)
	assert.Equal(t, "Worker error 503: queue full", apiErr.Error())
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPDispatchTransportFailure(t *testing.T) {
	d := newHTTPDispatcher(t, workerBase)
	httpmock.RegisterResponder(http.MethodPost, jobsURL, httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := d.Dispatch(context.Background(), "ch-1", "tok")

	assert.ErrorIs(t, err, apierr.ErrUnavailable)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPDispatchPreconditions(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		channelID string
		token     string
		want      error
	}{
		{"unknown channel", workerBase, "missing", "tok", apierr.ErrNotFound},
		{"worker address unset", "", "ch-1", "tok", apierr.ErrMisconfigured},
		{"missing token", workerBase, "ch-1", " ", apierr.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newHTTPDispatcher(t, tt.base)

			_, err := d.Dispatch(context.Background(), tt.channelID, tt.token)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, httpmock.GetTotalCallCount(), "no outbound call expected")
		})
	}
}

func TestQueueDispatch(t *testing.T) {
	enqueuer := &test.MockTaskEnqueuer{}
	d := NewQueueDispatcher(enqueuer, logger.NewNop(), metrics.New()).WithLookup(knownChannel)
	d.newID = func() string { return "ep-new" }

	ack, err := d.Dispatch(context.Background(), "ch-1", "tok")

	require.NoError(t, err)
	assert.Equal(t, "test-task-id", ack.JobID)
	assert.Equal(t, "ep-new", ack.EpisodeID)
	assert.Equal(t, models.EpisodeStatusPending, ack.Status)
	assert.JSONEq(t, `{"jobId":"test-task-id","episodeId":"ep-new","status":"PENDING"}`, string(ack.Body))

	require.Len(t, enqueuer.EnqueuedTasks, 1)
	task := enqueuer.EnqueuedTasks[0]
	assert.Equal(t, tasks.TypeGenerateEpisode, task.Type())
	var payload tasks.GenerateEpisodeTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, tasks.GenerateEpisodeTaskPayload{ChannelID: "ch-1", EpisodeID: "ep-new", OwnerID: "owner-1"}, payload)
}

func TestQueueDispatchFailures(t *testing.T) {
	t.Run("no queue configured", func(t *testing.T) {
		d := NewQueueDispatcher(nil, logger.NewNop(), metrics.New()).WithLookup(knownChannel)
		_, err := d.Dispatch(context.Background(), "ch-1", "tok")
		assert.ErrorIs(t, err, apierr.ErrMisconfigured)
	})

	t.Run("enqueue error", func(t *testing.T) {
		enqueuer := &test.MockTaskEnqueuer{Err: errors.New("redis: connection refused")}
		d := NewQueueDispatcher(enqueuer, logger.NewNop(), metrics.New()).WithLookup(knownChannel)
		_, err := d.Dispatch(context.Background(), "ch-1", "tok")
		assert.ErrorIs(t, err, apierr.ErrUnavailable)
	})
}
