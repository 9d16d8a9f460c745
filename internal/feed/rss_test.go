package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelcast/internal/models"
	"channelcast/internal/test"
)

func TestGenerateRSS(t *testing.T) {
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	channel := models.Channel{ID: "ch-1", Name: "AI Daily", Topic: "Daily AI news", CreatedAt: created}
	episodes := []models.Episode{
		{
			ID:          "ep-2",
			ChannelID:   "ch-1",
			Status:      models.EpisodeStatusReady,
			Script:      test.StringPtr("Today in AI: " + strings.Repeat("x", 400)),
			AudioKey:    test.StringPtr("audio/ep-2.mp3"),
			DurationSec: test.IntPtr(312),
			CreatedAt:   created.Add(48 * time.Hour),
		},
		{
			ID:        "ep-1",
			ChannelID: "ch-1",
			Status:    models.EpisodeStatusReady,
			AudioKey:  test.StringPtr("  "),
			CreatedAt: created.Add(24 * time.Hour),
		},
	}

	rss, err := GenerateRSS(channel, episodes, "https://cast.example.com")
	require.NoError(t, err)

	assert.Contains(t, rss, "<title>AI Daily</title>")
	assert.Contains(t, rss, "https://cast.example.com/rss/ch-1")
	assert.Contains(t, rss, `url="https://cast.example.com/api/episodes/ep-2/audio"`)
	assert.Contains(t, rss, "audio/mpeg")
	assert.Contains(t, rss, "Today in AI: ")
	assert.NotContains(t, rss, "ep-1/audio", "episodes without audio are skipped")
}

func TestBaseURL(t *testing.T) {
	req := httptest.NewRequest("GET", "/rss/ch-1", nil)
	req.Host = "cast.local:8080"

	assert.Equal(t, "https://cast.example.com", BaseURL("https://cast.example.com/", req))
	assert.Equal(t, "https://cast.local:8080", BaseURL("", req))

	req.Header.Set("X-Forwarded-Proto", "http")
	assert.Equal(t, "http://cast.local:8080", BaseURL("", req))
}
