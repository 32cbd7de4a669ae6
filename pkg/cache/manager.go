package cache

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/glorpus-work/spm/pkg/store"
)

// Manager owns the shared purge ledger and hands out namespace caches.
// Every ledger mutation is a read-modify-write of the whole document under
// one mutex, persisted with an atomic replace.
type Manager struct {
	store     store.BlobStore
	clock     clockwork.Clock
	retention time.Duration
	expiry    ExpirySource

	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for ledger timestamps, ages and sweeps.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithRetention overrides DefaultRetention.
func WithRetention(retention time.Duration) Option {
	return func(m *Manager) {
		if retention > 0 {
			m.retention = retention
		}
	}
}

// WithReadExpiry selects the timestamp used by TTL reads.
func WithReadExpiry(source ExpirySource) Option {
	return func(m *Manager) {
		m.expiry = source
	}
}

// NewManager creates a cache manager over blobs.
func NewManager(blobs store.BlobStore, opts ...Option) *Manager {
	m := &Manager{
		store:     blobs,
		clock:     clockwork.NewRealClock(),
		retention: DefaultRetention,
		expiry:    ExpiryFromStore,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Retention returns the sweep retention window.
func (m *Manager) Retention() time.Duration {
	return m.retention
}

// Open validates namespace, runs a purge sweep over the whole ledger and
// returns the cache for namespace.
func (m *Manager) Open(namespace string) (*Cache, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	if _, err := m.Sweep(); err != nil {
		return nil, errors.Wrap(err, "failed to sweep cache ledger")
	}

	if err := m.store.MkdirAll(namespace); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache namespace %s", namespace)
	}

	return &Cache{manager: m, namespace: namespace}, nil
}

// Sweep purges every ledger entry older than the retention window along with
// its blob. A namespace directory is removed when its last entry is purged.
func (m *Manager) Sweep() (*SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger := m.loadLedger()
	now := m.clock.Now()
	result := &SweepResult{}

	for namespace, entries := range ledger {
		purged := 0
		for key, ms := range entries {
			if now.Sub(time.UnixMilli(ms)) <= m.retention {
				continue
			}
			blob := path.Join(namespace, key)
			if err := m.store.Remove(blob); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("Failed to remove expired cache entry", logger.Fields{"entry": blob, "error": err})
			}
			delete(entries, key)
			purged++
		}
		result.Removed += purged

		if len(entries) > 0 {
			continue
		}
		delete(ledger, namespace)
		if purged > 0 {
			if err := m.store.RemoveAll(namespace); err != nil {
				logger.Warn("Failed to remove cache namespace", logger.Fields{"namespace": namespace, "error": err})
			}
			result.Namespaces = append(result.Namespaces, namespace)
		}
	}
	sort.Strings(result.Namespaces)

	if err := m.saveLedger(ledger); err != nil {
		return nil, err
	}

	if result.Removed > 0 {
		logger.Debug("Swept cache", logger.Fields{"removed": result.Removed, "namespaces": result.Namespaces})
	}
	return result, nil
}

// Info summarizes the ledger.
func (m *Manager) Info() (*Info, error) {
	m.mu.Lock()
	ledger := m.loadLedger()
	m.mu.Unlock()

	info := &Info{
		Root:      m.store.Root(),
		Retention: m.retention,
		Expiry:    m.expiry,
	}
	for namespace, entries := range ledger {
		ns := NamespaceInfo{Name: namespace}
		for key, ms := range entries {
			ns.Entries++
			written := time.UnixMilli(ms)
			if ns.Oldest.IsZero() || written.Before(ns.Oldest) {
				ns.Oldest = written
			}
			if written.After(ns.Newest) {
				ns.Newest = written
			}
			if fi, err := m.store.Stat(path.Join(namespace, key)); err == nil {
				ns.Size += fi.Size()
			}
		}
		info.TotalEntries += ns.Entries
		info.TotalSize += ns.Size
		info.Namespaces = append(info.Namespaces, ns)
	}
	sort.Slice(info.Namespaces, func(i, j int) bool {
		return info.Namespaces[i].Name < info.Namespaces[j].Name
	})
	return info, nil
}

// Ledger returns a copy of the current ledger.
func (m *Manager) Ledger() Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLedger()
}

// update runs fn on the ledger and persists the result, all under the lock.
func (m *Manager) update(fn func(Ledger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ledger := m.loadLedger()
	if err := fn(ledger); err != nil {
		return err
	}
	return m.saveLedger(ledger)
}

// loadLedger reads the ledger. A missing ledger is empty; a corrupt one is
// reported and replaced by an empty one on the next save.
func (m *Manager) loadLedger() Ledger {
	data, err := m.store.ReadFile(LedgerFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to read cache ledger", logger.Fields{"error": err})
		}
		return Ledger{}
	}
	ledger, err := DecodeLedger(data)
	if err != nil {
		logger.Warn("Resetting cache ledger", logger.Fields{"error": err})
		return Ledger{}
	}
	return ledger
}

func (m *Manager) saveLedger(ledger Ledger) error {
	data, err := ledger.Encode()
	if err != nil {
		return errors.Wrap(err, "failed to encode cache ledger")
	}
	if err := m.store.WriteFileAtomic(LedgerFile, data); err != nil {
		return errors.Wrap(err, "failed to write cache ledger")
	}
	return nil
}

// ValidateNamespace rejects reserved and path-hostile namespace names.
func ValidateNamespace(namespace string) error {
	switch {
	case namespace == "", namespace == ".", namespace == "..":
		return fmt.Errorf("%q: %w", namespace, errors.ErrInvalidNamespace)
	case strings.ContainsAny(namespace, `/\`):
		return fmt.Errorf("%q contains a path separator: %w", namespace, errors.ErrInvalidNamespace)
	}
	lower := strings.ToLower(namespace)
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return fmt.Errorf("%q: %w", namespace, errors.ErrReservedNamespace)
		}
	}
	return nil
}

// SanitizeKey maps a key to a blob file name: path separators become "-".
func SanitizeKey(key string) (string, error) {
	name := strings.NewReplacer("/", "-", `\`, "-").Replace(key)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%q: %w", key, errors.ErrInvalidKey)
	}
	return name, nil
}
