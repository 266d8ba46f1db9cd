package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// BlobFetcher opens the shared file behind a product
type BlobFetcher interface {
	Open(ctx context.Context, fileURL string) (io.ReadCloser, string, error)
}

// HTTPBlobFetcher reads blobs from the storage service over HTTP. Only URLs
// the storage policy allows are fetched, and redirects are not followed.
type HTTPBlobFetcher struct {
	policy     StoragePolicy
	httpClient *http.Client
}

// NewHTTPBlobFetcher creates a fetcher bound to the storage policy. Dialing
// and response headers are time-limited; the body is bounded by the request
// context.
func NewHTTPBlobFetcher(policy StoragePolicy) *HTTPBlobFetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          20,
	}
	return &HTTPBlobFetcher{
		policy: policy,
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Open starts a download and returns the body with its content type. The
// caller closes the body.
func (f *HTTPBlobFetcher) Open(ctx context.Context, fileURL string) (io.ReadCloser, string, error) {
	if err := f.policy.Allows(fileURL); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrContentUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build blob request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("blob request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("%w: blob status %d", ErrContentUnavailable, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return resp.Body, contentType, nil
}
