// Package poller follows a dispatched generation job until its episode reaches a terminal state.
//
// A Poller runs at most one loop at a time. Every loop is tagged with a generation number;
// starting or stopping bumps the generation, and any response that comes back tagged with
// an older generation is dropped without touching the observed state.
package poller

import (
	"context"
	"sync"
	"time"

	"channelcast/internal/logger"
	"channelcast/internal/models"
)

// DefaultInterval is the fixed delay between status queries. There is no backoff.
const DefaultInterval = 3 * time.Second

type State string

const (
	StateIdle    State = "IDLE"
	StatePolling State = "POLLING"
	StateReady   State = "READY"
	StateFailed  State = "FAILED"
	StateError   State = "ERROR"
)

func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed || s == StateError
}

// StatusFetcher queries the current status of an episode.
type StatusFetcher interface {
	EpisodeStatus(ctx context.Context, episodeID string) (models.EpisodeStatus, error)
}

// Job identifies the dispatched work being followed.
type Job struct {
	JobID     string
	EpisodeID string
}

// Ready is delivered once when a job's episode becomes READY.
type Ready struct {
	JobID     string
	EpisodeID string
	AudioKey  string
}

// Snapshot is the observed state of the current (or last) loop.
type Snapshot struct {
	State State
	Job   Job
	// EpisodeStatus is the last status string reported by the API.
	EpisodeStatus string
	AudioKey      string
	Err           string
}

type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration
	onReady  func(Ready)
	log      *logger.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	snap   Snapshot
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// OnReady registers the consumer notified when an episode becomes READY.
func OnReady(fn func(Ready)) Option {
	return func(p *Poller) { p.onReady = fn }
}

func WithLogger(log *logger.Logger) Option {
	return func(p *Poller) { p.log = log }
}

func New(fetcher StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		log:      logger.NewNop(),
		snap:     Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start cancels any running loop and begins polling job's episode. The first query is issued immediately.
func (p *Poller) Start(parent context.Context, job Job) {
	p.mu.Lock()
	p.stopLocked()
	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.snap = Snapshot{State: StatePolling, Job: job}
	p.mu.Unlock()

	p.log.Debug("status polling started", "job_id", job.JobID, "episode_id", job.EpisodeID)
	go p.run(ctx, gen, job, done)
}

// Stop cancels the running loop. A request already in flight is discarded when it returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Close stops polling and waits for the loop goroutine to exit.
func (p *Poller) Close() {
	p.mu.Lock()
	p.stopLocked()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Snapshot returns the observed state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Wait blocks until the current loop ends or ctx is done, then returns the observed state.
func (p *Poller) Wait(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return p.Snapshot(), nil
	}
	select {
	case <-done:
		return p.Snapshot(), nil
	case <-ctx.Done():
		return p.Snapshot(), ctx.Err()
	}
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.gen++
	p.cancel()
	p.cancel = nil
	if p.snap.State == StatePolling {
		p.snap.State = StateIdle
	}
}

func (p *Poller) run(ctx context.Context, gen uint64, job Job, done chan struct{}) {
	defer close(done)
	defer p.abandon(gen)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		status, err := p.fetcher.EpisodeStatus(ctx, job.EpisodeID)

		ready, next := p.apply(ctx, gen, status, err)
		if ready != nil && p.onReady != nil {
			p.onReady(*ready)
		}
		if !next {
			return
		}
		timer.Reset(p.interval)
	}
}

// abandon returns a loop that ended without a terminal status, such as one whose parent
// context was cancelled, to IDLE.
func (p *Poller) abandon(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.snap.State != StatePolling {
		return
	}
	p.snap.State = StateIdle
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// apply records a response if it still belongs to the current loop. It reports whether
// polling should continue.
func (p *Poller) apply(ctx context.Context, gen uint64, status models.EpisodeStatus, err error) (*Ready, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || ctx.Err() != nil {
		p.log.Debug("discarded stale status response", "episode_id", p.snap.Job.EpisodeID)
		return nil, false
	}

	if err != nil {
		p.finishLocked(StateError, err.Error())
		p.log.Warn("status check failed", "episode_id", p.snap.Job.EpisodeID, "error", err)
		return nil, false
	}

	p.snap.EpisodeStatus = status.Status
	switch {
	case status.Status == models.EpisodeStatusReady:
		if status.AudioKey != nil {
			p.snap.AudioKey = *status.AudioKey
		}
		p.finishLocked(StateReady, "")
		return &Ready{JobID: p.snap.Job.JobID, EpisodeID: p.snap.Job.EpisodeID, AudioKey: p.snap.AudioKey}, false
	case status.Status == models.EpisodeStatusFailed || status.Error != nil:
		msg := "Episode failed"
		if status.Error != nil && *status.Error != "" {
			msg = *status.Error
		}
		p.finishLocked(StateFailed, msg)
		return nil, false
	default:
		return nil, true
	}
}

func (p *Poller) finishLocked(state State, msg string) {
	p.snap.State = state
	p.snap.Err = msg
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
