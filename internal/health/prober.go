// Package health probes the generation worker's liveness endpoint.
package health

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"channelcast/internal/metrics"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusError     = "error"

	userAgent = "channelcast/healthcheck"
)

// Backend describes the probed worker endpoint.
type Backend struct {
	URL     string `json:"url"`
	Status  int    `json:"status,omitempty"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is one probe outcome.
type Result struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Backend   *Backend  `json:"backend,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	// HTTPStatus is the status the health endpoint should answer with.
	HTTPStatus int `json:"-"`
}

// Prober checks {workerBase}/healthz with a bounded timeout. Probes are never retried.
type Prober struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	now        func() time.Time
	metrics    *metrics.Metrics
}

func NewProber(baseURL string, timeout time.Duration, m *metrics.Metrics) *Prober {
	return &Prober{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		now:        time.Now,
		metrics:    m,
	}
}

// HTTPClient exposes the client used for probes.
func (p *Prober) HTTPClient() *http.Client {
	return p.httpClient
}

func (p *Prober) Probe(ctx context.Context) Result {
	if p.baseURL == "" {
		return Result{
			Status:     StatusUnhealthy,
			Message:    "WORKER_BASE_URL not configured",
			Timestamp:  p.now().UTC(),
			HTTPStatus: http.StatusInternalServerError,
		}
	}

	target := p.baseURL + "/healthz"
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{
			Status:     StatusError,
			Message:    err.Error(),
			Timestamp:  p.now().UTC(),
			HTTPStatus: http.StatusInternalServerError,
		}
	}
	req.Header.Set("User-Agent", userAgent)

	start := p.now()
	resp, err := p.httpClient.Do(req)
	latency := p.now().Sub(start)
	if err != nil {
		p.observe(StatusUnhealthy, latency)
		return Result{
			Status:     StatusUnhealthy,
			Message:    "Backend unreachable",
			Backend:    &Backend{URL: target, Error: err.Error(), Latency: formatLatency(latency)},
			Timestamp:  p.now().UTC(),
			HTTPStatus: http.StatusServiceUnavailable,
		}
	}
	resp.Body.Close()

	backend := &Backend{URL: target, Status: resp.StatusCode, Latency: formatLatency(latency)}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.observe(StatusDegraded, latency)
		return Result{
			Status:     StatusDegraded,
			Message:    fmt.Sprintf("Backend returned %d", resp.StatusCode),
			Backend:    backend,
			Timestamp:  p.now().UTC(),
			HTTPStatus: http.StatusServiceUnavailable,
		}
	}

	p.observe(StatusHealthy, latency)
	return Result{
		Status:     StatusHealthy,
		Message:    "Dashboard and worker are operational",
		Backend:    backend,
		Timestamp:  p.now().UTC(),
		HTTPStatus: http.StatusOK,
	}
}

func (p *Prober) observe(status string, latency time.Duration) {
	p.metrics.WorkerHealthProbe.WithLabelValues(status).Observe(latency.Seconds())
}

func formatLatency(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
