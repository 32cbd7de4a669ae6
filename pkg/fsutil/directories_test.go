package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T) string
		checkPerm bool
	}{
		{
			name: "creates new directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "newdir")
			},
			checkPerm: true,
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "parent", "child", "nested")
			},
			checkPerm: true,
		},
		{
			name: "succeeds when directory already exists",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			path := testCase.setup(t)

			require.NoError(t, EnsureDir(path))
			assert.DirExists(t, path)

			// Verify permissions (only check on Unix-like systems)
			if testCase.checkPerm && runtime.GOOS != "windows" {
				info, err := os.Stat(path)
				require.NoError(t, err)
				assert.Equal(t, os.FileMode(DirModeDefault)&^umask(t), info.Mode().Perm())
			}
		})
	}
}

func TestEnsureFileDir(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates parent directory for file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "parent", "file.txt")
			},
		},
		{
			name: "creates nested parent directories for file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nested", "parent", "file.txt")
			},
		},
		{
			name: "succeeds when parent directory exists",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "file.txt")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			filePath := testCase.setup(t)

			require.NoError(t, EnsureFileDir(filePath))
			assert.DirExists(t, filepath.Dir(filePath))
		})
	}
}

func TestEnsureDir_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("Skipping permission test when running as root")
	}

	// Create a directory we can't write to
	readonlyDir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readonlyDir, 0o555))

	err := EnsureDir(filepath.Join(readonlyDir, "shouldfail"))
	assert.Error(t, err)
	assert.False(t, os.IsExist(err), "Should not be an 'already exists' error")
}

// umask reports the process umask by probing a fresh directory.
func umask(t *testing.T) os.FileMode {
	t.Helper()
	probe := filepath.Join(t.TempDir(), "probe")
	require.NoError(t, os.Mkdir(probe, 0o777))
	info, err := os.Stat(probe)
	require.NoError(t, err)
	return 0o777 &^ info.Mode().Perm()
}
