package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
)

// HTTPFetcher fetches covers over HTTP with fixed request headers
type HTTPFetcher struct {
	client  *http.Client
	headers map[string]string
}

// NewHTTPFetcher creates a fetcher. Deadlines come from the caller's context.
func NewHTTPFetcher(userAgent, referer string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{},
		headers: map[string]string{
			"User-Agent": userAgent,
			"Referer":    referer,
			"Accept":     "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
		},
	}
}

// Fetch returns the response body for url. Non-2xx responses are
// transient_fetch errors carrying the status code.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.TransientFetch(fmt.Sprintf("invalid cover url %q", url), 0, err)
	}
	for k, v := range f.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.TransientFetch("cover request", 0, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.TransientFetch(fmt.Sprintf("cover returned %s", resp.Status), resp.StatusCode, nil)
	}
	return resp.Body, nil
}
