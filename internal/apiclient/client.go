// Package apiclient calls the dashboard HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"channelcast/internal/models"
)

// Client calls the dashboard API over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError represents a non-success API response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// JobAck is the acknowledgment of a dispatched generation job.
type JobAck struct {
	JobID     string `json:"jobId"`
	EpisodeID string `json:"episodeId"`
	Status    string `json:"status"`
	AudioKey  string `json:"audioKey,omitempty"`
}

// PlaybackURL is a signed audio link.
type PlaybackURL struct {
	URL       string    `json:"playbackUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewClient constructs a client. token may be empty for anonymous use.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// HTTPClient exposes the underlying client, e.g. to attach a cookie jar.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var resp struct {
		Channels []models.Channel `json:"channels"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/channels", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

func (c *Client) CreateChannel(ctx context.Context, name, topic, newsURL string) (models.PublicChannel, error) {
	body := map[string]string{"name": name, "topic": topic, "news_url": newsURL}
	var resp struct {
		Channel models.PublicChannel `json:"channel"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/channels", body, &resp); err != nil {
		return models.PublicChannel{}, err
	}
	return resp.Channel, nil
}

// Generate dispatches a generation job for the channel.
func (c *Client) Generate(ctx context.Context, channelID string) (JobAck, error) {
	var ack JobAck
	err := c.call(ctx, http.MethodPost, "/api/channels/"+url.PathEscape(channelID)+"/generate", nil, &ack)
	return ack, err
}

// EpisodeStatus fetches the current status of an episode.
func (c *Client) EpisodeStatus(ctx context.Context, episodeID string) (models.EpisodeStatus, error) {
	var status models.EpisodeStatus
	err := c.call(ctx, http.MethodGet, "/api/episodes/"+url.PathEscape(episodeID)+"/status", nil, &status)
	return status, err
}

// PlaybackURL requests a freshly signed audio link.
func (c *Client) PlaybackURL(ctx context.Context, episodeID string) (PlaybackURL, error) {
	var out PlaybackURL
	err := c.call(ctx, http.MethodGet, "/api/episodes/"+url.PathEscape(episodeID)+"/playback-url", nil, &out)
	return out, err
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		msg := strings.TrimSpace(payload.Error)
		if msg == "" {
			msg = fmt.Sprintf("request failed (%d)", resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
