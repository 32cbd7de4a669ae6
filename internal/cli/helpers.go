// Package cli implements the spm command tree on top of the library packages.
package cli

import (
	"fmt"

	"github.com/glorpus-work/spm/pkg/cache"
	"github.com/glorpus-work/spm/pkg/config"
	"github.com/glorpus-work/spm/pkg/http"
	"github.com/glorpus-work/spm/pkg/installer"
	"github.com/glorpus-work/spm/pkg/loader"
	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/glorpus-work/spm/pkg/registry"
	"github.com/glorpus-work/spm/pkg/store"
	"github.com/glorpus-work/spm/pkg/update"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
)

// deps holds the components a command works with, wired from the config.
type deps struct {
	cfg       *config.Config
	store     *store.FSStore
	fetcher   *http.HTTPClient
	resolver  *registry.Resolver
	installer *installer.Installer
	loader    *loader.Loader
	cache     *cache.Manager
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}
	return config.GetDefaultConfigPath()
}

// loadConfig loads the configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.InitLogger(level, NoColor != nil && *NoColor)

	return cfg, nil
}

// loadDeps loads the configuration and wires the store, registry, installer,
// loader and cache manager.
func loadDeps() (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	blobs, err := store.NewFSStore(cfg.Settings.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	authenticator, err := cfg.Authenticator()
	if err != nil {
		return nil, err
	}
	var opts []http.ClientOption
	if authenticator != nil {
		opts = append(opts, http.WithAuthenticator(authenticator))
	}

	layout := cfg.Layout()
	fetcher := http.NewHTTPClient(cfg.Settings.HTTPTimeout, opts...)

	return &deps{
		cfg:       cfg,
		store:     blobs,
		fetcher:   fetcher,
		resolver:  registry.NewResolver(fetcher, layout, registry.WithManifestTTL(cfg.Settings.ManifestTTL)),
		installer: installer.New(blobs, fetcher, layout),
		loader:    loader.New(),
		cache: cache.NewManager(blobs,
			cache.WithRetention(cfg.Settings.Cache.Retention),
			cache.WithReadExpiry(cfg.ReadExpiry()),
		),
	}, nil
}

// checker returns an update checker for channel, or the configured channel when empty.
func (d *deps) checker(channel string) (*update.Checker, error) {
	if channel == "" {
		channel = d.cfg.Settings.Channel
	}
	return update.NewChecker(d.resolver, d.store, channel)
}
