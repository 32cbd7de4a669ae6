package registry

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/http"
	"github.com/glorpus-work/spm/pkg/http/mocks"
	"github.com/glorpus-work/spm/pkg/model"
)

const (
	testBaseURL     = "https://registry.example/packages"
	testManifestURL = testBaseURL + "/acme/widgets/spm.json"
)

func serveManifest(doc string) func(context.Context, string, any) error {
	return func(_ context.Context, _ string, v any) error {
		return json.Unmarshal([]byte(doc), v)
	}
}

func TestResolver_ResolveAlias(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		FetchJSON(gomock.Any(), testManifestURL, gomock.Any()).
		DoAndReturn(serveManifest(`{"versions":{"latest":"2.1.0"}}`)).
		Times(2)

	resolver := NewResolver(fetcher, NewLayout(testBaseURL, ""))

	for range 2 {
		id, err := resolver.Resolve(context.Background(), model.MustParseIdentifier("acme/widgets@latest"))
		require.NoError(t, err)
		assert.Equal(t, "2.1.0", id.Version)
	}
}

func TestResolver_ConcreteVersionPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		FetchJSON(gomock.Any(), testManifestURL, gomock.Any()).
		DoAndReturn(serveManifest(`{"versions":{"latest":"2.1.0"}}`))

	resolver := NewResolver(fetcher, NewLayout(testBaseURL, ""))
	id, err := resolver.Resolve(context.Background(), model.MustParseIdentifier("acme/widgets@1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", id.Version)
}

func TestResolver_ManifestUnavailable(t *testing.T) {
	tests := []struct {
		name  string
		fetch func(context.Context, string, any) error
	}{
		{
			name: "fetch failure",
			fetch: func(context.Context, string, any) error {
				return errors.ErrDownloadFailed
			},
		},
		{
			name:  "missing versions",
			fetch: serveManifest(`{"name":"widgets"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fetcher := mocks.NewMockFetcher(ctrl)
			fetcher.EXPECT().FetchJSON(gomock.Any(), testManifestURL, gomock.Any()).DoAndReturn(tt.fetch)

			resolver := NewResolver(fetcher, NewLayout(testBaseURL, ""))
			_, err := resolver.Resolve(context.Background(), model.MustParseIdentifier("acme/widgets"))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrManifestUnavailable)
		})
	}
}

func TestResolver_ManifestWithTrailingData(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		_, _ = w.Write([]byte(`{"versions":{"latest":"2.1.0"}}<html>not json</html>`))
	}))
	t.Cleanup(server.Close)

	resolver := NewResolver(http.NewHTTPClient(5*time.Second), NewLayout(server.URL, ""))
	_, err := resolver.Resolve(context.Background(), model.MustParseIdentifier("acme/widgets@latest"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrManifestUnavailable)
}

func TestResolver_ManifestTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)
	clock := clockwork.NewFakeClock()

	gomock.InOrder(
		fetcher.EXPECT().
			FetchJSON(gomock.Any(), testManifestURL, gomock.Any()).
			DoAndReturn(serveManifest(`{"versions":{"latest":"2.1.0"}}`)),
		fetcher.EXPECT().
			FetchJSON(gomock.Any(), testManifestURL, gomock.Any()).
			DoAndReturn(serveManifest(`{"versions":{"latest":"2.2.0"}}`)),
	)

	resolver := NewResolver(fetcher, NewLayout(testBaseURL, ""),
		WithManifestTTL(time.Minute), WithClock(clock))
	id := model.MustParseIdentifier("acme/widgets@latest")

	resolved, err := resolver.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", resolved.Version)

	clock.Advance(30 * time.Second)
	resolved, err = resolver.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", resolved.Version, "served from the manifest cache")

	clock.Advance(time.Minute)
	resolved, err = resolver.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "2.2.0", resolved.Version, "new release visible after the TTL")
}
