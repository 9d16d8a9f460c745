// Package playback plays episode audio from signed links, one episode at a time.
package playback

import (
	"context"
	"sync"
)

// Handle is something that can play one audio source.
type Handle interface {
	SetSource(url string)
	Source() string
	Play(ctx context.Context) error
	Pause()
	Paused() bool
}

// Registry tracks the playable handles of one session. Create it when the session starts and
// Close it when the session ends.
type Registry struct {
	mu      sync.Mutex
	handles map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

func (r *Registry) Register(episodeID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[episodeID] = h
}

func (r *Registry) Unregister(episodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, episodeID)
}

// PauseOthers pauses every playing handle except episodeID's.
func (r *Registry) PauseOthers(episodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range r.handles {
		if id != episodeID && !h.Paused() {
			h.Pause()
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close pauses everything and forgets all handles.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, h := range r.handles {
		if !h.Paused() {
			h.Pause()
		}
		delete(r.handles, id)
	}
}
