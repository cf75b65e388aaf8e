// internal/common/http/client.go
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"scout-workers/internal/common/metrics"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds outbound fetches across every request in the process.
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	metrics.OutboundInFlight.Inc()
	return func() {
		metrics.OutboundInFlight.Dec()
		l.sem.Release(1)
	}, nil
}

type Config struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher issues GET requests with a browser User-Agent through a shared Limiter.
type Fetcher struct {
	httpClient   *http.Client
	limiter      *Limiter
	userAgent    string
	maxBodyBytes int64
}

func NewFetcher(cfg Config, limiter *Limiter) *Fetcher {
	if limiter == nil {
		limiter = NewLimiter(16)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5 << 20
	}
	return &Fetcher{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		limiter:      limiter,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Get returns the response for any status code. Only transport failures,
// limiter cancellation and body read errors are returned as errors.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	release, err := f.limiter.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire fetch slot: %w", err)
	}
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
