package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"NoiseGate/internal/ports"
)

const (
	userAgent    = "NoiseGate/1.0 (RSS Aggregator)"
	acceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml"

	// DefaultTimeout bounds a single feed download.
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 10 << 20
)

// TransportError reports a non-success HTTP status from the feed host.
type TransportError struct {
	StatusCode int
	Status     string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// NetworkError reports a failure to reach the feed host at all.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPFetcher downloads raw feed documents.
type HTTPFetcher struct {
	client *http.Client
}

var _ ports.FeedFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher builds a fetcher; a non-positive timeout uses DefaultTimeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch issues a GET and returns the body as text.
func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", &NetworkError{URL: feedURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &NetworkError{URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &TransportError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &NetworkError{URL: feedURL, Err: err}
	}
	return string(body), nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
