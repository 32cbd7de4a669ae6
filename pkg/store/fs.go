// Package store provides the local blob store that holds installed modules,
// cache entries and the purge ledger.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	spmerrors "github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/fsutil"
)

// FSStore implements BlobStore on top of an afero file system.
type FSStore struct {
	fs    afero.Fs
	root  string
	clock clockwork.Clock
}

// Option configures an FSStore.
type Option func(*FSStore)

// WithClock sets the clock used to stamp written files.
func WithClock(clock clockwork.Clock) Option {
	return func(s *FSStore) {
		s.clock = clock
	}
}

// NewFSStore returns a store rooted at root on the local disk, creating the
// directory when needed.
func NewFSStore(root string, opts ...Option) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("store root: %w", spmerrors.ErrInvalidPath)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, spmerrors.Wrapf(err, "failed to resolve store root %s", root)
	}
	if err := fsutil.EnsureDir(abs); err != nil {
		return nil, spmerrors.Wrapf(err, "failed to create store root %s", abs)
	}
	return newStore(afero.NewBasePathFs(afero.NewOsFs(), abs), abs, opts...), nil
}

// NewMemStore returns an in-memory store. Creation times are the
// modification times stamped by the store clock.
func NewMemStore(opts ...Option) *FSStore {
	return newStore(afero.NewMemMapFs(), "", opts...)
}

func newStore(afs afero.Fs, root string, opts ...Option) *FSStore {
	s := &FSStore{fs: afs, root: root, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root implements BlobStore.
func (s *FSStore) Root() string {
	return s.root
}

// Fs exposes the underlying file system.
func (s *FSStore) Fs() afero.Fs {
	return s.fs
}

func (s *FSStore) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, clean(name))
}

func (s *FSStore) WriteFile(name string, data []byte) error {
	name = clean(name)
	if err := s.fs.MkdirAll(path.Dir(name), fsutil.DirModeDefault); err != nil {
		return err
	}
	if err := afero.WriteFile(s.fs, name, data, fsutil.FileModeDefault); err != nil {
		return err
	}
	return s.stamp(name)
}

func (s *FSStore) WriteFileAtomic(name string, data []byte) error {
	name = clean(name)
	dir := path.Dir(name)
	if err := s.fs.MkdirAll(dir, fsutil.DirModeDefault); err != nil {
		return err
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+path.Base(name)+".tmp-*")
	if err != nil {
		return spmerrors.Wrap(err, "failed to create temporary file")
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = s.fs.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return spmerrors.Wrap(err, "failed to write temporary file")
	}
	if err := tmp.Close(); err != nil {
		return spmerrors.Wrap(err, "failed to close temporary file")
	}
	if err := s.fs.Chmod(tmpName, fsutil.FileModeDefault); err != nil {
		return spmerrors.Wrap(err, "failed to set permissions on temporary file")
	}
	if err := s.fs.Rename(tmpName, name); err != nil {
		return spmerrors.Wrapf(err, "failed to move %s into place", name)
	}
	return s.stamp(name)
}

func (s *FSStore) Remove(name string) error {
	return s.fs.Remove(clean(name))
}

func (s *FSStore) RemoveAll(name string) error {
	return s.fs.RemoveAll(clean(name))
}

func (s *FSStore) Exists(name string) (bool, error) {
	_, err := s.fs.Stat(clean(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s *FSStore) MkdirAll(name string) error {
	return s.fs.MkdirAll(clean(name), fsutil.DirModeDefault)
}

func (s *FSStore) Stat(name string) (os.FileInfo, error) {
	return s.fs.Stat(clean(name))
}

// CreatedAt prefers the file's birth time where the platform records one and
// falls back to its modification time.
func (s *FSStore) CreatedAt(name string) (time.Time, error) {
	name = clean(name)
	fi, err := s.fs.Stat(name)
	if err != nil {
		return time.Time{}, err
	}
	if s.root == "" || fi.Sys() == nil {
		return fi.ModTime(), nil
	}

	ts, err := times.Stat(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		return fi.ModTime(), nil
	}
	if ts.HasBirthTime() {
		return ts.BirthTime(), nil
	}
	return ts.ModTime(), nil
}

func (s *FSStore) List(dir string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, clean(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Mode().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *FSStore) stamp(name string) error {
	now := s.clock.Now()
	return s.fs.Chtimes(name, now, now)
}

func clean(name string) string {
	name = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
	if name == "" {
		return "."
	}
	return name
}

var _ BlobStore = (*FSStore)(nil)
