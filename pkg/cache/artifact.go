package cache

import (
	"context"

	"github.com/glorpus-work/spm/pkg/http"
	"github.com/glorpus-work/spm/pkg/logger"
)

// LoadArtifact returns the artifact cached under key, fetching it from
// rawURL and caching it on a miss. Failing to populate the cache is logged,
// the fetched data is still returned.
func LoadArtifact(ctx context.Context, c *Cache, key, rawURL string, fetcher http.Fetcher) ([]byte, error) {
	if data := c.ReadArtifact(key); data != nil {
		return data, nil
	}

	data, err := fetcher.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := c.WriteArtifact(key, data); err != nil {
		logger.Warn("Failed to cache artifact", logger.Fields{"namespace": c.namespace, "key": key, "error": err})
	}
	return data, nil
}
