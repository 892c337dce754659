package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent identifies recipescan to feed servers.
const DefaultUserAgent = "recipescan/1.0 (feed fetcher)"

// maxFeedSize caps how much of a response body is read.
const maxFeedSize = 32 << 20

// FeedFetcher retrieves the raw bytes of a feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPError is a non-200 response.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d fetching %s: %s", e.StatusCode, e.URL, e.Status)
}

// HTTPFetcher fetches feeds over HTTP.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

// Fetch GETs url and returns the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}
