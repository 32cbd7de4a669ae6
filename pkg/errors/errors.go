// Package errors defines the error taxonomy shared by the spm packages.
// Callers compare against the sentinels with errors.Is; every wrapper in this
// package keeps the chain intact.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Reference and resolution errors.
var (
	// ErrMalformedReference is returned when a package reference does not follow owner/name[@version].
	ErrMalformedReference = fmt.Errorf("malformed package reference")

	// ErrManifestUnavailable is returned when a registry manifest cannot be fetched or decoded.
	ErrManifestUnavailable = fmt.Errorf("manifest unavailable")
)

// Install and load errors.
var (
	// ErrModuleNotFound is returned when a module is not present in the local store.
	ErrModuleNotFound = fmt.Errorf("module not installed")

	// ErrInstallFailed is returned when a module could not be downloaded or persisted.
	ErrInstallFailed = fmt.Errorf("install failed")

	// ErrModuleLoad is returned when installed module source fails to compile or run.
	ErrModuleLoad = fmt.Errorf("failed to load module")

	// ErrDownloadFailed is returned when a remote resource answered with a non-success status.
	ErrDownloadFailed = fmt.Errorf("download failed")
)

// Cache errors.
var (
	ErrReservedNamespace = fmt.Errorf("cache namespace is reserved")
	ErrInvalidNamespace  = fmt.Errorf("invalid cache namespace")
	ErrInvalidKey        = fmt.Errorf("invalid cache key")
	ErrLedgerCorrupt     = fmt.Errorf("cache ledger is corrupt")
)

// Config and filesystem errors.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrInvalidPath       = fmt.Errorf("invalid path")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
