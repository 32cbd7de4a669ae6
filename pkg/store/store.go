//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
package store

import (
	"os"
	"time"
)

// BlobStore is a path-addressed store rooted at a single directory.
// Names are slash separated and relative to the root.
type BlobStore interface {
	// Root returns the location of the store on disk, or "" for in-memory stores.
	Root() string

	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error

	// WriteFileAtomic writes data to a temporary sibling and renames it into place.
	WriteFileAtomic(name string, data []byte) error

	Remove(name string) error
	RemoveAll(name string) error
	Exists(name string) (bool, error)
	MkdirAll(name string) error
	Stat(name string) (os.FileInfo, error)

	// CreatedAt returns the store's own creation timestamp for name.
	CreatedAt(name string) (time.Time, error)

	// List returns the names of the regular files directly inside dir, sorted.
	List(dir string) ([]string, error)
}
