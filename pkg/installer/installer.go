// Package installer implements fetch-or-load of module sources. A module is
// downloaded at most once per concrete version and served from the local
// store afterwards.
package installer

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/http"
	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/glorpus-work/spm/pkg/model"
	"github.com/glorpus-work/spm/pkg/registry"
	"github.com/glorpus-work/spm/pkg/store"
)

// ModuleDir is the store directory holding installed modules.
const ModuleDir = "spm"

// Record is an installed module.
type Record struct {
	ID        model.Identifier
	Key       string
	Path      string
	Source    string
	Digest    string
	CreatedAt time.Time
}

// Installer loads modules from the store and installs missing ones.
// Concurrent installs of the same key share a single download.
type Installer struct {
	store   store.BlobStore
	fetcher http.Fetcher
	layout  registry.Layout
	group   singleflight.Group
}

// New creates a new Installer.
func New(blobs store.BlobStore, fetcher http.Fetcher, layout registry.Layout) *Installer {
	return &Installer{
		store:   blobs,
		fetcher: fetcher,
		layout:  layout,
	}
}

// Path returns the store path of the module source for id.
func (i *Installer) Path(id model.Identifier) string {
	return path.Join(ModuleDir, id.Key()+i.layout.SourceExt)
}

// Load returns the installed record for id without touching the network.
// It fails with errors.ErrModuleNotFound when the module is not installed.
func (i *Installer) Load(id model.Identifier) (*Record, error) {
	p := i.Path(id)
	data, err := i.store.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, errors.ErrModuleNotFound)
		}
		return nil, errors.Wrapf(err, "failed to read %s", p)
	}

	created, err := i.store.CreatedAt(p)
	if err != nil {
		logger.Debug("Could not read module creation time", logger.Fields{"module": id.String(), "error": err})
	}

	return &Record{
		ID:        id,
		Key:       id.Key(),
		Path:      p,
		Source:    string(data),
		Digest:    Digest(data),
		CreatedAt: created,
	}, nil
}

// EnsureInstalled returns the record for id, downloading and persisting the
// source first when it is not installed yet. id must carry a concrete version.
func (i *Installer) EnsureInstalled(ctx context.Context, id model.Identifier) (*Record, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	rec, err := i.Load(id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, errors.ErrModuleNotFound) {
		return nil, fmt.Errorf("%w: %w", errors.ErrInstallFailed, err)
	}

	// The shared download outlives any single caller; the fetcher's timeout bounds it.
	flight := i.group.DoChan(id.Key(), func() (any, error) {
		return nil, i.install(context.WithoutCancel(ctx), id)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w: %w", id, errors.ErrInstallFailed, ctx.Err())
	case res = <-flight:
	}
	if res.Err != nil {
		return nil, fmt.Errorf("%s: %w: %w", id, errors.ErrInstallFailed, res.Err)
	}

	rec, err = i.Load(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", id, errors.ErrInstallFailed, err)
	}

	if !res.Shared {
		logger.Success("Installed module", logger.Fields{"module": id.String(), "digest": rec.Digest})
	}
	return rec, nil
}

func (i *Installer) install(ctx context.Context, id model.Identifier) error {
	p := i.Path(id)

	// Another caller may have finished the install after our first lookup.
	exists, err := i.store.Exists(p)
	if err != nil {
		return errors.Wrapf(err, "failed to check %s", p)
	}
	if exists {
		return nil
	}

	sourceURL := i.layout.SourceURL(id)
	logger.Debug("Downloading module", logger.Fields{"module": id.String(), "url": sourceURL})

	source, err := i.fetcher.FetchText(ctx, sourceURL)
	if err != nil {
		return errors.Wrapf(err, "failed to download %s", sourceURL)
	}

	if err := i.store.WriteFileAtomic(p, []byte(source)); err != nil {
		return errors.Wrapf(err, "failed to write %s", p)
	}
	return nil
}

// List returns the installed modules.
func (i *Installer) List() ([]*Record, error) {
	names, err := i.store.List(ModuleDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list installed modules")
	}

	records := make([]*Record, 0, len(names))
	for _, name := range names {
		key, ok := strings.CutSuffix(name, i.layout.SourceExt)
		if !ok {
			continue
		}
		id, err := model.ParseKey(key)
		if err != nil {
			logger.Debug("Skipping unrecognized file in module directory", logger.Fields{"file": name})
			continue
		}
		rec, err := i.Load(id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Remove deletes an installed module.
func (i *Installer) Remove(id model.Identifier) error {
	p := i.Path(id)
	exists, err := i.store.Exists(p)
	if err != nil {
		return errors.Wrapf(err, "failed to check %s", p)
	}
	if !exists {
		return fmt.Errorf("%s: %w", id, errors.ErrModuleNotFound)
	}
	if err := i.store.Remove(p); err != nil {
		return errors.Wrapf(err, "failed to remove %s", p)
	}
	logger.Info("Removed module", logger.Fields{"module": id.String()})
	return nil
}

// Digest returns the hex xxhash64 fingerprint of a module source.
func Digest(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
