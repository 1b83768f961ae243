package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/bomweather/internal/bomerr"
	"github.com/lox/bomweather/internal/metrics"
)

const (
	DefaultTimeout = 10 * time.Second
	userAgent      = "bomweather/1.0 (+https://github.com/lox/bomweather)"
)

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
	}
}

// Fetcher retrieves documents over HTTP.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = NewClient(DefaultTimeout)
	}
	return &Fetcher{client: client}
}

// Get returns the body of url. Any failure to obtain a 2xx response is a
// *bomerr.TransportError.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	body, status, err := f.get(ctx, url)
	metrics.FetchLatency.WithLabelValues("http").Observe(time.Since(start).Seconds())

	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	metrics.FetchesTotal.WithLabelValues("http", label).Inc()
	return body, err
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	// The Bureau rejects requests carrying the default Go User-Agent.
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, &bomerr.TransportError{Op: "http get", Target: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, &bomerr.TransportError{Op: "http get", Target: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &bomerr.TransportError{Op: "http read", Target: url, Err: err}
	}
	return body, resp.StatusCode, nil
}
