// Package dispatch hands episode generation jobs to the external worker.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"channelcast/internal/apierr"
	"channelcast/internal/db"
	"channelcast/internal/logger"
	"channelcast/internal/metrics"
	"channelcast/internal/models"
)

const maxAckBytes = 1 << 20

// JobAck is the worker's acknowledgment. Body is forwarded to callers byte for byte;
// the parsed fields are a convenience and may be empty if the worker omits them.
type JobAck struct {
	Body      json.RawMessage
	JobID     string
	EpisodeID string
	Status    string
}

// Dispatcher starts one generation job. Implementations never retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, channelID, token string) (JobAck, error)
}

// ChannelLookup loads a channel or returns an apierr not-found error.
type ChannelLookup func(ctx context.Context, id string) (models.Channel, error)

// HTTPDispatcher posts jobs to the worker's job-creation endpoint.
type HTTPDispatcher struct {
	baseURL    string
	httpClient *http.Client
	lookup     ChannelLookup
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewHTTPDispatcher builds a dispatcher. An empty baseURL is accepted and reported
// as a misconfiguration on every dispatch.
func NewHTTPDispatcher(baseURL string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *HTTPDispatcher {
	return &HTTPDispatcher{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		lookup:     db.GetChannelByID,
		log:        log,
		metrics:    m,
	}
}

// WithLookup replaces the channel lookup, mainly for tests.
func (d *HTTPDispatcher) WithLookup(lookup ChannelLookup) *HTTPDispatcher {
	d.lookup = lookup
	return d
}

// HTTPClient exposes the client used for worker calls.
func (d *HTTPDispatcher) HTTPClient() *http.Client {
	return d.httpClient
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, channelID, token string) (JobAck, error) {
	ack, err := d.dispatch(ctx, channelID, token)
	d.metrics.Dispatches.WithLabelValues(resultLabel(err)).Inc()
	return ack, err
}

func (d *HTTPDispatcher) dispatch(ctx context.Context, channelID, token string) (JobAck, error) {
	if _, err := d.lookup(ctx, channelID); err != nil {
		return JobAck{}, err
	}
	if d.baseURL == "" {
		return JobAck{}, apierr.Misconfigured("WORKER_BASE_URL is not set")
	}
	if strings.TrimSpace(token) == "" {
		return JobAck{}, apierr.New(apierr.KindUnauthorized, "Not authenticated")
	}

	payload, err := json.Marshal(map[string]string{"channel_id": channelID})
	if err != nil {
		return JobAck{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/jobs/run-from-channel", bytes.NewReader(payload))
	if err != nil {
		return JobAck{}, apierr.Misconfigured("invalid WORKER_BASE_URL: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.log.Error("worker dispatch failed", "channel_id", channelID, "error", err)
		return JobAck{}, apierr.Wrap(apierr.KindUnavailable, err, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBytes))
	if err != nil {
		return JobAck{}, apierr.Wrap(apierr.KindUnavailable, err, fmt.Sprintf("read worker response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.log.Warn("worker rejected job", "channel_id", channelID, "status", resp.StatusCode)
		return JobAck{}, apierr.Upstream(resp.StatusCode, string(body))
	}

	ack := parseAck(body)
	d.log.Info("dispatched generation job",
		"channel_id", channelID,
		"job_id", ack.JobID,
		"episode_id", ack.EpisodeID,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return ack, nil
}

// parseAck keeps JSON bodies as they are and wraps anything else as {"raw": text}.
func parseAck(body []byte) JobAck {
	if !json.Valid(body) {
		wrapped, _ := json.Marshal(map[string]string{"raw": string(body)})
		return JobAck{Body: wrapped}
	}
	ack := JobAck{Body: json.RawMessage(body)}
	var fields struct {
		JobID     string `json:"jobId"`
		EpisodeID string `json:"episodeId"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		ack.JobID = fields.JobID
		ack.EpisodeID = fields.EpisodeID
		ack.Status = fields.Status
	}
	return ack
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return apierr.KindOf(err).String()
}
