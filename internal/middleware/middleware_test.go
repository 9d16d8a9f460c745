package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"channelcast/internal/logger"
)

func TestRateLimiterIsPerKey(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 2)

	assert.True(t, rl.Allow("owner-a"))
	assert.True(t, rl.Allow("owner-a"))
	assert.False(t, rl.Allow("owner-a"), "burst exhausted")

	assert.True(t, rl.Allow("owner-b"), "other owners have their own bucket")
}

func TestPerMinuteZeroIsUnlimited(t *testing.T) {
	rl := PerMinute(0)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("owner-a"))
	}
}

func TestRequestLoggerAssignsID(t *testing.T) {
	var seen string
	h := RequestLogger(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/channels", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	var seen string
	h := RequestLogger(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))
}
