//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
package http

import "context"

// Fetcher performs GET requests against the registry.
type Fetcher interface {
	// FetchText returns the response body as a string.
	FetchText(ctx context.Context, rawURL string) (string, error)

	// FetchBytes returns the raw response body.
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)

	// FetchJSON decodes the response body into v.
	FetchJSON(ctx context.Context, rawURL string, v any) error
}
