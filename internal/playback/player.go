package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"channelcast/internal/apiclient"
	"channelcast/internal/logger"
)

// ErrPlaybackFailed is returned once the single fresh-link retry has also failed.
var ErrPlaybackFailed = errors.New("playback failed")

// URLSource hands out freshly signed playback links.
type URLSource interface {
	PlaybackURL(ctx context.Context, episodeID string) (apiclient.PlaybackURL, error)
}

// Player plays one episode through a handle registered in a session registry.
// The signed link is cached on the handle; when playing fails the player asks for exactly
// one fresh link and tries once more.
type Player struct {
	episodeID string
	handle    Handle
	registry  *Registry
	urls      URLSource
	log       *logger.Logger

	mu      sync.Mutex
	retried bool
}

// NewPlayer registers handle under episodeID. Call Close to unregister it.
func NewPlayer(episodeID string, handle Handle, registry *Registry, urls URLSource, log *logger.Logger) *Player {
	registry.Register(episodeID, handle)
	return &Player{
		episodeID: episodeID,
		handle:    handle,
		registry:  registry,
		urls:      urls,
		log:       log,
	}
}

func (p *Player) EpisodeID() string {
	return p.episodeID
}

// Preload fetches a signed link and caches it on the handle.
func (p *Player) Preload(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadLocked(ctx); err != nil {
		return err
	}
	p.retried = false
	return nil
}

// Play pauses every other episode and starts this one. The player's lock is not held
// while the handle plays, so Preload and Close stay usable during playback.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if p.handle.Source() == "" {
		if err := p.loadLocked(ctx); err != nil {
			p.mu.Unlock()
			return err
		}
		p.retried = false
	}
	p.mu.Unlock()

	if err := p.start(ctx); err != nil {
		return p.recover(ctx, err)
	}
	p.mu.Lock()
	p.retried = false
	p.mu.Unlock()
	return nil
}

// Close stops playback and unregisters the handle.
func (p *Player) Close() {
	if !p.handle.Paused() {
		p.handle.Pause()
	}
	p.registry.Unregister(p.episodeID)
}

// recover swaps in one fresh link after a failure, typically an expired signature.
func (p *Player) recover(ctx context.Context, cause error) error {
	p.mu.Lock()
	if p.retried {
		p.mu.Unlock()
		p.log.Debug("playback failed again, giving up", "episode_id", p.episodeID, "error", cause)
		return fmt.Errorf("%w: %v", ErrPlaybackFailed, cause)
	}
	p.retried = true
	p.log.Info("playback failed, refreshing link", "episode_id", p.episodeID, "error", cause)
	err := p.loadLocked(ctx)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlaybackFailed, err)
	}

	if err := p.start(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPlaybackFailed, err)
	}
	p.mu.Lock()
	p.retried = false
	p.mu.Unlock()
	return nil
}

func (p *Player) start(ctx context.Context) error {
	p.registry.PauseOthers(p.episodeID)
	return p.handle.Play(ctx)
}

func (p *Player) loadLocked(ctx context.Context) error {
	signed, err := p.urls.PlaybackURL(ctx, p.episodeID)
	if err != nil {
		return fmt.Errorf("fetch playback url: %w", err)
	}
	if signed.URL == "" {
		return errors.New("fetch playback url: empty url")
	}
	p.handle.SetSource(signed.URL)
	return nil
}
