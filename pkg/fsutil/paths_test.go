package fsutil

import (
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
)

func TestDefaultPaths(t *testing.T) {
	t.Cleanup(xdg.Reload)
	dataHome := t.TempDir()
	configHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("XDG_CONFIG_HOME", configHome)
	xdg.Reload()

	assert.Equal(t, filepath.Join(dataHome, "spm"), GetDataDir())
	assert.Equal(t, filepath.Join(configHome, "spm"), GetConfigDir())
	assert.Equal(t, filepath.Join(configHome, "spm", "config.yaml"), GetDefaultConfigPath())
}
