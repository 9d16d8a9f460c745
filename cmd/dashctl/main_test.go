package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, api string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api", api, "--token", "tok"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateWaitReachesReady(t *testing.T) {
	var statusCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/channels/ch-1/generate", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"jobId":"job-1","episodeId":"ep-1","status":"PENDING"}`)
	})
	mux.HandleFunc("GET /api/episodes/ep-1/status", func(w http.ResponseWriter, r *http.Request) {
		if statusCalls.Add(1) < 2 {
			fmt.Fprint(w, `{"status":"RUNNING","error":null}`)
			return
		}
		fmt.Fprint(w, `{"status":"READY","audioKey":"audio/ep-1.mp3"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := runCLI(t, srv.URL, "generate", "ch-1", "--wait", "--interval", "1ms")

	require.NoError(t, err)
	assert.Contains(t, out, "Job job-1 started, episode ep-1")
	assert.Contains(t, out, "Episode ep-1 is ready: audio/ep-1.mp3")
	assert.Equal(t, int32(2), statusCalls.Load())
}

func TestGenerateWaitReportsFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/channels/ch-1/generate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobId":"job-1","episodeId":"ep-1","status":"PENDING"}`)
	})
	mux.HandleFunc("GET /api/episodes/ep-1/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"FAILED","error":"x"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := runCLI(t, srv.URL, "generate", "ch-1", "--wait", "--interval", "1ms")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "episode ep-1 failed: x")
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/channels/ch-1/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"Server misconfiguration: WORKER_BASE_URL is not set"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := runCLI(t, srv.URL, "generate", "ch-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKER_BASE_URL is not set")
}

func TestChannelsTable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/channels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"channels":[{"id":"ch-1","name":"AI Daily","topic":"ai"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := runCLI(t, srv.URL, "channels")

	require.NoError(t, err)
	assert.Contains(t, out, "ch-1")
	assert.Contains(t, out, "AI Daily")
}

func TestStatusPrintsJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/episodes/ep-1/status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"PENDING","error":null,"script":null,"audioKey":null,"durationSec":null}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := runCLI(t, srv.URL, "status", "ep-1")

	require.NoError(t, err)
	assert.Contains(t, out, `"status": "PENDING"`)
}
