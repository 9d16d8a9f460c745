package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelcast/internal/auth"
	"channelcast/internal/config"
	"channelcast/internal/dispatch"
	"channelcast/internal/handlers"
	"channelcast/internal/health"
	"channelcast/internal/identity"
	"channelcast/internal/logger"
	"channelcast/internal/media"
	"channelcast/internal/metrics"
	"channelcast/internal/middleware"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.NewNop()
	m := metrics.New()
	h := handlers.New(
		identity.NewResolver(nil, log, m),
		dispatch.NewHTTPDispatcher("", time.Second, log, m),
		media.NewBroker(nil, nil, 0, log, m),
		health.NewProber("", time.Second, m),
		middleware.PerMinute(0),
		"",
		log,
	)
	return newRouter(h, m, log)
}

func TestRouterServesMetrics(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestRouterHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "WORKER_BASE_URL not configured")
}

func TestRouterUnknownMethod(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/channels", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestBuildAuthenticator(t *testing.T) {
	a, err := buildAuthenticator(config.AuthConfig{})
	require.NoError(t, err)
	assert.Empty(t, a)

	a, err = buildAuthenticator(config.AuthConfig{JWTSecret: "s3cret", TelegramBotToken: "bot-token"})
	require.NoError(t, err)
	chain, ok := a.(auth.Chain)
	require.True(t, ok)
	assert.Len(t, chain, 2)
}

func TestBuildDispatcher(t *testing.T) {
	log := logger.NewNop()
	m := metrics.New()

	d, closeFn := buildDispatcher(config.Config{DispatchMode: config.DispatchModeHTTP, WorkerBaseURL: "http://worker"}, log, m)
	defer closeFn()
	assert.IsType(t, &dispatch.HTTPDispatcher{}, d)

	q, closeQueue := buildDispatcher(config.Config{DispatchMode: config.DispatchModeQueue, RedisAddr: "127.0.0.1:6379"}, log, m)
	defer closeQueue()
	assert.IsType(t, &dispatch.QueueDispatcher{}, q)
}
