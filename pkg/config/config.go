// Package config provides configuration management for spm.
// It handles loading, validating and saving the YAML settings file and
// provides defaults for every value the file leaves out.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/spm/pkg/auth"
	"github.com/glorpus-work/spm/pkg/cache"
	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/fsutil"
	"github.com/glorpus-work/spm/pkg/registry"
	"github.com/glorpus-work/spm/pkg/update"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Store settings
	RootDir   string `yaml:"root_dir,omitempty"`
	SourceExt string `yaml:"source_ext"`

	// Registry settings
	RegistryURL  string           `yaml:"registry_url"`
	RegistryAuth auth.Credentials `yaml:"registry_auth,omitempty"`
	ManifestTTL  time.Duration    `yaml:"manifest_ttl"`
	Channel      string           `yaml:"channel"`

	// Network settings
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`

	Cache CacheSettings `yaml:"cache"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// CacheSettings controls the TTL cache.
type CacheSettings struct {
	Retention  time.Duration `yaml:"retention"`
	ReadExpiry string        `yaml:"read_expiry"` // store or ledger
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxConcurrent is the default number of imports run in parallel.
	DefaultMaxConcurrent = 4

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			RootDir:       fsutil.GetDataDir(),
			SourceExt:     registry.DefaultSourceExt,
			RegistryURL:   registry.DefaultBaseURL,
			Channel:       update.ChannelStable,
			HTTPTimeout:   DefaultHTTPTimeout,
			MaxConcurrent: DefaultMaxConcurrent,
			LogLevel:      "info",
			Cache: CacheSettings{
				Retention:  cache.DefaultRetention,
				ReadExpiry: cache.ExpiryFromStore.String(),
			},
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig writes the configuration to path through a temporary file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := fsutil.CreateFilePerm(tempPath, fsutil.FileModeDefault)
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: %s", errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: %s", errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	return validateSettings(c.Settings)
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative: %w", errors.ErrConfigValidation)
	}
	if s.ManifestTTL < 0 {
		return fmt.Errorf("manifest_ttl must not be negative: %w", errors.ErrConfigValidation)
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1: %w", errors.ErrConfigValidation)
	}
	if s.Cache.Retention <= 0 {
		return fmt.Errorf("cache.retention must be positive: %w", errors.ErrConfigValidation)
	}
	if !strings.HasPrefix(s.SourceExt, ".") || strings.ContainsAny(s.SourceExt, `/\`) {
		return fmt.Errorf("source_ext %q must start with a dot and contain no separators: %w", s.SourceExt, errors.ErrConfigValidation)
	}
	if _, err := auth.New(s.RegistryAuth); err != nil {
		return err
	}
	if _, err := update.ParseChannel(s.Channel); err != nil {
		return err
	}
	if _, err := cache.ParseExpirySource(s.Cache.ReadExpiry); err != nil {
		return err
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("invalid log level %q: %w", s.LogLevel, errors.ErrConfigValidation)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return fsutil.GetDefaultConfigPath()
}

// ReadExpiry returns the parsed cache.read_expiry setting.
func (c *Config) ReadExpiry() cache.ExpirySource {
	source, err := cache.ParseExpirySource(c.Settings.Cache.ReadExpiry)
	if err != nil {
		return cache.ExpiryFromStore
	}
	return source
}

// Layout returns the registry layout described by the settings.
func (c *Config) Layout() registry.Layout {
	return registry.NewLayout(c.Settings.RegistryURL, c.Settings.SourceExt)
}

// Authenticator returns the registry credentials scoped to the registry URL,
// or nil when none are configured.
func (c *Config) Authenticator() (auth.Authenticator, error) {
	inner, err := auth.New(c.Settings.RegistryAuth)
	if err != nil || inner == nil {
		return nil, err
	}
	return auth.Scoped{Prefix: c.Settings.RegistryURL, Inner: inner}, nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.RootDir == "" {
		c.Settings.RootDir = defaults.Settings.RootDir
	}
	if c.Settings.SourceExt == "" {
		c.Settings.SourceExt = defaults.Settings.SourceExt
	}
	if c.Settings.RegistryURL == "" {
		c.Settings.RegistryURL = defaults.Settings.RegistryURL
	}
	if c.Settings.Channel == "" {
		c.Settings.Channel = defaults.Settings.Channel
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.MaxConcurrent == 0 {
		c.Settings.MaxConcurrent = defaults.Settings.MaxConcurrent
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.Cache.Retention == 0 {
		c.Settings.Cache.Retention = defaults.Settings.Cache.Retention
	}
	if c.Settings.Cache.ReadExpiry == "" {
		c.Settings.Cache.ReadExpiry = defaults.Settings.Cache.ReadExpiry
	}
}
