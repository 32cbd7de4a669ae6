package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/glorpus-work/spm/pkg/errors"
)

// Keys lists the settings accepted by GetValue and SetValue, in display order.
var Keys = []string{
	"root_dir",
	"registry_url",
	"source_ext",
	"http_timeout",
	"manifest_ttl",
	"channel",
	"max_concurrent",
	"log_level",
	"cache.retention",
	"cache.read_expiry",
}

// SetValue sets a configuration value by key and validates the result.
// Supported keys are listed in Keys; durations use time.ParseDuration syntax.
func (c *Config) SetValue(key, value string) error {
	next := *c
	s := &next.Settings
	switch key {
	case "root_dir":
		s.RootDir = value
	case "registry_url":
		s.RegistryURL = value
	case "source_ext":
		s.SourceExt = value
	case "channel":
		s.Channel = value
	case "log_level":
		s.LogLevel = value
	case "cache.read_expiry":
		s.Cache.ReadExpiry = value
	case "http_timeout", "manifest_ttl", "cache.retention":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s: %w", key, value, errors.ErrConfigValidation)
		}
		switch key {
		case "http_timeout":
			s.HTTPTimeout = d
		case "manifest_ttl":
			s.ManifestTTL = d
		default:
			s.Cache.Retention = d
		}
	case "max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %s: %w", key, value, errors.ErrConfigValidation)
		}
		s.MaxConcurrent = n
	default:
		return fmt.Errorf("unknown configuration key: %s: %w", key, errors.ErrConfigValidation)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// GetValue returns the value of key as a string.
func (c *Config) GetValue(key string) (string, error) {
	s := c.Settings
	switch key {
	case "root_dir":
		return s.RootDir, nil
	case "registry_url":
		return s.RegistryURL, nil
	case "source_ext":
		return s.SourceExt, nil
	case "http_timeout":
		return s.HTTPTimeout.String(), nil
	case "manifest_ttl":
		return s.ManifestTTL.String(), nil
	case "channel":
		return s.Channel, nil
	case "max_concurrent":
		return strconv.Itoa(s.MaxConcurrent), nil
	case "log_level":
		return s.LogLevel, nil
	case "cache.retention":
		return s.Cache.Retention.String(), nil
	case "cache.read_expiry":
		return s.Cache.ReadExpiry, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s: %w", key, errors.ErrConfigValidation)
	}
}

// ToMap returns every setting keyed by its dotted name.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		value, err := c.GetValue(key)
		if err != nil {
			continue
		}
		result[key] = value
	}
	return result
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
