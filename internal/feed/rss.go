package feed

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eduncan911/podcast"

	"channelcast/internal/models"
)

const summaryLen = 240

// BaseURL returns configured when set, otherwise the scheme and host the request arrived on.
func BaseURL(configured string, r *http.Request) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}

	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "https"
		if r.Header.Get("X-Forwarded-Proto") != "" {
			scheme = r.Header.Get("X-Forwarded-Proto")
		}
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// GenerateRSS renders a channel's READY episodes as a podcast feed. Enclosures point at the
// audio redirect route so every download gets a freshly signed link.
func GenerateRSS(channel models.Channel, episodes []models.Episode, baseURL string) (string, error) {
	description := channel.Topic
	if description == "" {
		description = fmt.Sprintf("Episodes of %s.", channel.Name)
	}

	created := channel.CreatedAt
	lastBuild := created
	for _, ep := range episodes {
		if ep.CreatedAt.After(lastBuild) {
			lastBuild = ep.CreatedAt
		}
	}

	p := podcast.New(
		channel.Name,
		fmt.Sprintf("%s/rss/%s", baseURL, channel.ID),
		description,
		&created, &lastBuild,
	)

	for _, ep := range episodes {
		if ep.Status != models.EpisodeStatusReady || ep.StoredAudioKey() == "" {
			continue
		}
		pubDate := ep.CreatedAt
		item := podcast.Item{
			GUID:        ep.ID,
			Title:       fmt.Sprintf("%s (%s)", channel.Name, ep.CreatedAt.UTC().Format(time.DateOnly)),
			Description: summary(ep),
			Link:        fmt.Sprintf("%s/api/episodes/%s/audio", baseURL, ep.ID),
			PubDate:     &pubDate,
		}
		item.AddEnclosure(item.Link, podcast.MP3, 0)
		if ep.DurationSec != nil {
			item.AddDuration(int64(*ep.DurationSec))
		}
		if _, err := p.AddItem(item); err != nil {
			return "", err
		}
	}

	return p.String(), nil
}

func summary(ep models.Episode) string {
	if ep.Script == nil || strings.TrimSpace(*ep.Script) == "" {
		return "Generated episode."
	}
	s := strings.TrimSpace(*ep.Script)
	if r := []rune(s); len(r) > summaryLen {
		return string(r[:summaryLen]) + "..."
	}
	return s
}
