package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/http"
	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/glorpus-work/spm/pkg/model"
)

// Resolver fetches manifests and maps aliases to concrete versions.
// With a manifest TTL configured, manifests are reused in-process until they
// are older than the TTL; otherwise every resolution fetches.
type Resolver struct {
	fetcher http.Fetcher
	layout  Layout
	ttl     time.Duration
	clock   clockwork.Clock

	mu        sync.Mutex
	manifests map[string]cachedManifest
}

type cachedManifest struct {
	manifest  *Manifest
	fetchedAt time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithManifestTTL enables the in-process manifest cache.
func WithManifestTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.ttl = ttl
	}
}

// WithClock sets the clock used to age cached manifests.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Resolver) {
		r.clock = clock
	}
}

// NewResolver creates a resolver for the given registry layout.
func NewResolver(fetcher http.Fetcher, layout Layout, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:   fetcher,
		layout:    layout,
		clock:     clockwork.NewRealClock(),
		manifests: make(map[string]cachedManifest),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Layout returns the registry layout used by the resolver.
func (r *Resolver) Layout() Layout {
	return r.layout
}

// Manifest returns the manifest of owner/name.
func (r *Resolver) Manifest(ctx context.Context, owner, name string) (*Manifest, error) {
	pkg := owner + "/" + name

	if m, ok := r.cached(pkg); ok {
		return m, nil
	}

	manifestURL := r.layout.ManifestURL(owner, name)
	var m Manifest
	if err := r.fetcher.FetchJSON(ctx, manifestURL, &m); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", pkg, errors.ErrManifestUnavailable, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", pkg, err)
	}

	logger.Debug("Fetched manifest", logger.Fields{"package": pkg, "versions": len(m.Versions)})

	if r.ttl > 0 {
		r.mu.Lock()
		r.manifests[pkg] = cachedManifest{manifest: &m, fetchedAt: r.clock.Now()}
		r.mu.Unlock()
	}
	return &m, nil
}

// Resolve returns id with its version resolved to a concrete one.
func (r *Resolver) Resolve(ctx context.Context, id model.Identifier) (model.Identifier, error) {
	m, err := r.Manifest(ctx, id.Owner, id.Name)
	if err != nil {
		return model.Identifier{}, err
	}
	return ResolveWith(m, id), nil
}

func (r *Resolver) cached(pkg string) (*Manifest, bool) {
	if r.ttl <= 0 {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.manifests[pkg]
	if !ok {
		return nil, false
	}
	if r.clock.Since(entry.fetchedAt) >= r.ttl {
		delete(r.manifests, pkg)
		return nil, false
	}
	return entry.manifest, true
}
