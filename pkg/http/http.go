// Package http implements the registry transport used by the resolver,
// the installer and the cache artifact loader.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/glorpus-work/spm/pkg/auth"
	"github.com/glorpus-work/spm/pkg/errors"
)

// DefaultUserAgent is sent with every request.
const DefaultUserAgent = "spm/1.0"

// HTTPClient fetches registry documents and module sources.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	auth      auth.Authenticator
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAuthenticator applies a to every request.
func WithAuthenticator(a auth.Authenticator) ClientOption {
	return func(hc *HTTPClient) {
		hc.auth = a
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) ClientOption {
	return func(hc *HTTPClient) {
		hc.userAgent = ua
	}
}

// NewHTTPClient creates a new HTTP client with the given request timeout.
func NewHTTPClient(timeout time.Duration, opts ...ClientOption) *HTTPClient {
	hc := &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// get issues a GET for rawURL and returns the response of a 2xx status.
// The caller closes the body.
func (hc *HTTPClient) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("User-Agent", hc.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if hc.auth != nil {
		if err := hc.auth.Apply(req); err != nil {
			return nil, errors.Wrapf(err, "failed to authenticate request to %s", rawURL)
		}
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", rawURL)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: unexpected status code %d: %w", rawURL, resp.StatusCode, errors.ErrDownloadFailed)
	}
	return resp, nil
}

// FetchBytes downloads rawURL and returns the body.
// Any status outside 2xx is reported as errors.ErrDownloadFailed.
func (hc *HTTPClient) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := hc.get(ctx, rawURL, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	return data, nil
}

// FetchText downloads rawURL and returns the body as text.
func (hc *HTTPClient) FetchText(ctx context.Context, rawURL string) (string, error) {
	data, err := hc.FetchBytes(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FetchJSON downloads rawURL and decodes the JSON body into v.
func (hc *HTTPClient) FetchJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := hc.get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(err, "failed to decode %s", rawURL)
	}
	// the body must hold exactly one document
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("failed to decode %s: trailing data after JSON document", rawURL)
	}

	return nil
}

var _ Fetcher = (*HTTPClient)(nil)
