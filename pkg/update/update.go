// Package update checks whether a newer spm release is available and stages
// it for the next invocation. It never replaces the running program.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/jonboulle/clockwork"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/installer"
	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/glorpus-work/spm/pkg/model"
	"github.com/glorpus-work/spm/pkg/registry"
	"github.com/glorpus-work/spm/pkg/store"
)

// Release channels.
const (
	ChannelStable = "stable"
	ChannelDev    = "dev"
)

// SelfPackage is the registry package spm itself is released as.
var SelfPackage = model.MustParseIdentifier("spm-team/spm")

// MarkerFile holds a staged update.
var MarkerFile = path.Join(installer.ModuleDir, "update.json")

// ManifestSource fetches registry manifests.
type ManifestSource interface {
	Manifest(ctx context.Context, owner, name string) (*registry.Manifest, error)
}

// Status is the outcome of a check.
type Status struct {
	Available bool
	Running   string
	Latest    string
	Channel   string
	Downgrade bool
}

// Pending is a staged update.
type Pending struct {
	Version   string    `json:"version"`
	Channel   string    `json:"channel"`
	StagedAt  time.Time `json:"staged_at"`
	Downgrade bool      `json:"downgrade"`
}

// Checker compares the running version against the release manifest.
type Checker struct {
	source  ManifestSource
	store   store.BlobStore
	channel string
	clock   clockwork.Clock
}

// Option configures a Checker.
type Option func(*Checker)

// WithClock sets the clock used to stamp staged updates.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Checker) {
		c.clock = clock
	}
}

// ParseChannel validates a channel name. The empty string means stable.
func ParseChannel(channel string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(channel)) {
	case "", ChannelStable:
		return ChannelStable, nil
	case ChannelDev:
		return ChannelDev, nil
	default:
		return "", fmt.Errorf("unknown channel %q (want %s or %s): %w", channel, ChannelStable, ChannelDev, errors.ErrConfigValidation)
	}
}

// NewChecker creates a checker for the given channel.
func NewChecker(source ManifestSource, blobs store.BlobStore, channel string, opts ...Option) (*Checker, error) {
	ch, err := ParseChannel(channel)
	if err != nil {
		return nil, err
	}
	c := &Checker{
		source:  source,
		store:   blobs,
		channel: ch,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Alias returns the manifest alias the checker follows.
func (c *Checker) Alias() string {
	if c.channel == ChannelDev {
		return model.DevAlias
	}
	return model.DefaultAlias
}

// Check fetches the release manifest and stages an update when the release
// on the checker's channel differs from running.
func (c *Checker) Check(ctx context.Context, running string) (*Status, error) {
	m, err := c.source.Manifest(ctx, SelfPackage.Owner, SelfPackage.Name)
	if err != nil {
		return nil, err
	}

	alias := c.Alias()
	latest, ok := m.Versions[alias]
	if !ok {
		return nil, fmt.Errorf("%s has no %q release: %w", SelfPackage.Package(), alias, errors.ErrManifestUnavailable)
	}

	status := &Status{Running: running, Latest: latest, Channel: c.channel}
	if latest == running {
		if err := c.Clear(); err != nil {
			return nil, err
		}
		return status, nil
	}

	status.Available = true
	status.Downgrade = isDowngrade(running, latest)

	pending := Pending{
		Version:   latest,
		Channel:   c.channel,
		StagedAt:  c.clock.Now().UTC(),
		Downgrade: status.Downgrade,
	}
	data, err := json.MarshalIndent(pending, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode staged update")
	}
	if err := c.store.WriteFileAtomic(MarkerFile, data); err != nil {
		return nil, errors.Wrap(err, "failed to stage update")
	}

	logger.Info("Update available", logger.Fields{"running": running, "latest": latest, "channel": c.channel})
	return status, nil
}

// CheckAsync runs Check in the background. Failures are logged and yield a
// nil status; the returned channel receives exactly one value.
func (c *Checker) CheckAsync(ctx context.Context, running string) <-chan *Status {
	out := make(chan *Status, 1)
	go func() {
		defer close(out)
		status, err := c.Check(ctx, running)
		if err != nil {
			logger.Debug("Update check failed", logger.Fields{"error": err})
			out <- nil
			return
		}
		out <- status
	}()
	return out
}

// Pending returns the staged update, or nil when none is staged.
func (c *Checker) Pending() (*Pending, error) {
	data, err := c.store.ReadFile(MarkerFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read staged update")
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to decode staged update")
	}
	return &p, nil
}

// Clear removes a staged update.
func (c *Checker) Clear() error {
	if err := c.store.Remove(MarkerFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "failed to clear staged update")
	}
	return nil
}

// isDowngrade reports whether latest sorts before running. Versions that
// do not parse are never a downgrade.
func isDowngrade(running, latest string) bool {
	rv, err := version.NewVersion(running)
	if err != nil {
		return false
	}
	lv, err := version.NewVersion(latest)
	if err != nil {
		return false
	}
	return lv.LessThan(rv)
}
