package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T, clock clockwork.Clock) map[string]*FSStore {
	t.Helper()
	disk, err := NewFSStore(t.TempDir(), WithClock(clock))
	require.NoError(t, err)
	return map[string]*FSStore{
		"memory": NewMemStore(WithClock(clock)),
		"disk":   disk,
	}
}

func TestFSStore_ReadWrite(t *testing.T) {
	for name, s := range stores(t, clockwork.NewRealClock()) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.WriteFile("ns/key", []byte("value")))

			data, err := s.ReadFile("ns/key")
			require.NoError(t, err)
			assert.Equal(t, "value", string(data))

			exists, err := s.Exists("ns/key")
			require.NoError(t, err)
			assert.True(t, exists)

			require.NoError(t, s.Remove("ns/key"))
			exists, err = s.Exists("ns/key")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestFSStore_WriteFileAtomic(t *testing.T) {
	for name, s := range stores(t, clockwork.NewRealClock()) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.WriteFileAtomic("cache.json", []byte(`{"a":{}}`)))
			require.NoError(t, s.WriteFileAtomic("cache.json", []byte(`{}`)))

			data, err := s.ReadFile("cache.json")
			require.NoError(t, err)
			assert.Equal(t, `{}`, string(data))

			// no temporary siblings are left behind
			entries, err := s.List(".")
			require.NoError(t, err)
			assert.Equal(t, []string{"cache.json"}, entries)
		})
	}
}

func TestFSStore_List(t *testing.T) {
	for name, s := range stores(t, clockwork.NewRealClock()) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.WriteFile("spm/b", []byte("b")))
			require.NoError(t, s.WriteFile("spm/a", []byte("a")))
			require.NoError(t, s.MkdirAll("spm/nested"))

			names, err := s.List("spm")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, names)

			names, err = s.List("missing")
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestFSStore_RemoveAll(t *testing.T) {
	for name, s := range stores(t, clockwork.NewRealClock()) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.WriteFile("ns/one", []byte("1")))
			require.NoError(t, s.WriteFile("ns/two", []byte("2")))
			require.NoError(t, s.RemoveAll("ns"))

			exists, err := s.Exists("ns")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestMemStore_CreatedAtFollowsClock(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	s := NewMemStore(WithClock(clock))

	require.NoError(t, s.WriteFileAtomic("ns/key", []byte("v")))
	created, err := s.CreatedAt("ns/key")
	require.NoError(t, err)
	assert.True(t, created.Equal(start), "created at %s", created)

	clock.Advance(time.Hour)
	require.NoError(t, s.WriteFile("ns/other", []byte("v")))
	created, err = s.CreatedAt("ns/other")
	require.NoError(t, err)
	assert.True(t, created.Equal(start.Add(time.Hour)))
}

func TestFSStore_CreatedAtOnDisk(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	before := time.Now().Add(-time.Minute)
	require.NoError(t, s.WriteFile("ns/key", []byte("v")))

	created, err := s.CreatedAt("ns/key")
	require.NoError(t, err)
	assert.True(t, created.After(before), "created at %s", created)

	_, err = s.CreatedAt("ns/missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFSStore_PathsStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, err := NewFSStore(root)
	require.NoError(t, err)

	require.NoError(t, s.WriteFile("../../escape", []byte("x")))
	_, err = os.Stat(filepath.Join(root, "escape"))
	assert.NoError(t, err)
}

func TestNewFSStore_EmptyRoot(t *testing.T) {
	_, err := NewFSStore("")
	assert.Error(t, err)
}
