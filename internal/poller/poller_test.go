package poller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"channelcast/internal/apiclient"
	"channelcast/internal/models"
	"channelcast/internal/test"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testInterval = 5 * time.Millisecond

type response struct {
	status models.EpisodeStatus
	err    error
}

// scriptedFetcher answers status queries from a fixed script, then keeps answering PENDING.
type scriptedFetcher struct {
	mu        sync.Mutex
	script    []response
	calls     int
	requested []string
}

func (f *scriptedFetcher) EpisodeStatus(_ context.Context, episodeID string) (models.EpisodeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, episodeID)
	i := f.calls
	f.calls++
	if i >= len(f.script) {
		return models.EpisodeStatus{Status: models.EpisodeStatusPending}, nil
	}
	return f.script[i].status, f.script[i].err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// blockingFetcher holds every query for one episode until released; other episodes answer from ready.
type blockingFetcher struct {
	blockedEpisode string
	entered        chan struct{}
	release        chan struct{}
	reply          models.EpisodeStatus
	ready          models.EpisodeStatus
}

func newBlockingFetcher(episodeID string) *blockingFetcher {
	return &blockingFetcher{
		blockedEpisode: episodeID,
		entered:        make(chan struct{}, 1),
		release:        make(chan struct{}),
		reply:          models.EpisodeStatus{Status: models.EpisodeStatusReady, AudioKey: test.StringPtr("audio/stale.mp3")},
		ready:          models.EpisodeStatus{Status: models.EpisodeStatusReady, AudioKey: test.StringPtr("audio/fresh.mp3")},
	}
}

func (f *blockingFetcher) EpisodeStatus(_ context.Context, episodeID string) (models.EpisodeStatus, error) {
	if episodeID != f.blockedEpisode {
		return f.ready, nil
	}
	f.entered <- struct{}{}
	<-f.release
	return f.reply, nil
}

type readyRecorder struct {
	mu    sync.Mutex
	calls []Ready
}

func (r *readyRecorder) record(res Ready) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, res)
}

func (r *readyRecorder) Calls() []Ready {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Ready(nil), r.calls...)
}

func wait(t *testing.T, p *Poller) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := p.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func pending() response {
	return response{status: models.EpisodeStatus{Status: "RUNNING"}}
}

func TestPollerReachesReadyAndNotifiesOnce(t *testing.T) {
	fetcher := &scriptedFetcher{script: []response{
		pending(),
		pending(),
		{status: models.EpisodeStatus{Status: models.EpisodeStatusReady, AudioKey: test.StringPtr("audio/ep-1.mp3")}},
	}}
	rec := &readyRecorder{}
	p := New(fetcher, WithInterval(testInterval), OnReady(rec.record))
	defer p.Close()

	p.Start(context.Background(), Job{JobID: "job-1", EpisodeID: "ep-1"})
	snap := wait(t, p)

	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "audio/ep-1.mp3", snap.AudioKey)
	assert.Equal(t, []Ready{{JobID: "job-1", EpisodeID: "ep-1", AudioKey: "audio/ep-1.mp3"}}, rec.Calls())

	time.Sleep(5 * testInterval)
	assert.Equal(t, 3, fetcher.Calls(), "no requests after a terminal state")
	assert.Len(t, rec.Calls(), 1)
}

func TestPollerFailedStopsPolling(t *testing.T) {
	fetcher := &scriptedFetcher{script: []response{
		{status: models.EpisodeStatus{Status: models.EpisodeStatusFailed, Error: test.StringPtr("x")}},
	}}
	rec := &readyRecorder{}
	p := New(fetcher, WithInterval(testInterval), OnReady(rec.record))
	defer p.Close()

	p.Start(context.Background(), Job{JobID: "job-1", EpisodeID: "ep-1"})
	snap := wait(t, p)

	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "x", snap.Err)
	time.Sleep(5 * testInterval)
	assert.Equal(t, 1, fetcher.Calls())
	assert.Empty(t, rec.Calls())
}

func TestPollerErrorPayloadFails(t *testing.T) {
	fetcher := &scriptedFetcher{script: []response{
		pending(),
		{status: models.EpisodeStatus{Status: "RUNNING", Error: test.StringPtr("tts quota exceeded")}},
	}}
	p := New(fetcher, WithInterval(testInterval))
	defer p.Close()

	p.Start(context.Background(), Job{EpisodeID: "ep-1"})
	snap := wait(t, p)

	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "tts quota exceeded", snap.Err)
	assert.Equal(t, 2, fetcher.Calls())
}

func TestPollerTransportAndHTTPFailuresAreErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"transport", errors.New("dial tcp: connection refused")},
		{"non-success", &apiclient.APIError{Status: http.StatusNotFound, Message: "Episode not found"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &scriptedFetcher{script: []response{{err: tt.err}}}
			p := New(fetcher, WithInterval(testInterval))
			defer p.Close()

			p.Start(context.Background(), Job{EpisodeID: "ep-1"})
			snap := wait(t, p)

			assert.Equal(t, StateError, snap.State)
			assert.Equal(t, tt.err.Error(), snap.Err)
			time.Sleep(5 * testInterval)
			assert.Equal(t, 1, fetcher.Calls(), "errors are not retried")
		})
	}
}

func TestPollerDiscardsResponseAfterStop(t *testing.T) {
	fetcher := newBlockingFetcher("ep-1")
	rec := &readyRecorder{}
	p := New(fetcher, WithInterval(testInterval), OnReady(rec.record))

	p.Start(context.Background(), Job{JobID: "job-1", EpisodeID: "ep-1"})
	<-fetcher.entered
	p.Stop()
	before := p.Snapshot()

	close(fetcher.release)
	p.Close()

	assert.Equal(t, before, p.Snapshot(), "stale response must not change observed state")
	assert.Equal(t, StateIdle, p.Snapshot().State)
	assert.Empty(t, rec.Calls())
}

func TestPollerNewStartCancelsPriorLoop(t *testing.T) {
	fetcher := newBlockingFetcher("ep-old")
	rec := &readyRecorder{}
	p := New(fetcher, WithInterval(testInterval), OnReady(rec.record))
	defer p.Close()

	p.Start(context.Background(), Job{JobID: "job-old", EpisodeID: "ep-old"})
	<-fetcher.entered

	p.Start(context.Background(), Job{JobID: "job-new", EpisodeID: "ep-new"})
	snap := wait(t, p)
	require.Equal(t, StateReady, snap.State)

	close(fetcher.release)
	time.Sleep(5 * testInterval)

	snap = p.Snapshot()
	assert.Equal(t, "ep-new", snap.Job.EpisodeID)
	assert.Equal(t, "audio/fresh.mp3", snap.AudioKey)
	assert.Equal(t, []Ready{{JobID: "job-new", EpisodeID: "ep-new", AudioKey: "audio/fresh.mp3"}}, rec.Calls())
}

func TestPollerParentCancellationDiscardsInFlight(t *testing.T) {
	fetcher := newBlockingFetcher("ep-1")
	p := New(fetcher, WithInterval(testInterval))
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx, Job{EpisodeID: "ep-1"})
	<-fetcher.entered
	cancel()
	close(fetcher.release)

	snap, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.AudioKey)
	p.Close()
}

func TestPollerParentCancellationBetweenChecksReturnsToIdle(t *testing.T) {
	fetcher := &scriptedFetcher{script: []response{{status: models.EpisodeStatus{Status: "RUNNING"}}}}
	p := New(fetcher, WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx, Job{EpisodeID: "ep-1"})
	require.Eventually(t, func() bool { return p.Snapshot().EpisodeStatus == "RUNNING" }, time.Second, time.Millisecond)
	cancel()

	snap, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	p.Close()
}

func TestPollerIdleByDefault(t *testing.T) {
	p := New(&scriptedFetcher{})

	snap, err := p.Wait(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	p.Close()
}
