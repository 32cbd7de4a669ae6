package fsutil

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppName is the name of the application used in paths.
	AppName = "spm"

	// ConfigFileName is the default config file name inside the config directory.
	ConfigFileName = "config.yaml"
)

// GetDataDir returns the root of the local store.
// On Linux: $XDG_DATA_HOME/spm (~/.local/share/spm)
// On macOS: ~/Library/Application Support/spm
// On Windows: %LOCALAPPDATA%\spm
func GetDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// GetConfigDir returns the directory holding the spm configuration.
func GetConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// GetDefaultConfigPath returns the config file used when --config is not given.
func GetDefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), ConfigFileName)
}
