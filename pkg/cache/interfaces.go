package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/glorpus-work/spm/pkg/errors"
)

// ExpirySource selects the timestamp Read compares against a TTL.
type ExpirySource int

const (
	// ExpiryFromStore uses the creation time reported by the blob store.
	ExpiryFromStore ExpirySource = iota
	// ExpiryFromLedger uses the write time recorded in the ledger.
	ExpiryFromLedger
)

func (s ExpirySource) String() string {
	if s == ExpiryFromLedger {
		return "ledger"
	}
	return "store"
}

// ParseExpirySource parses "store" or "ledger".
func ParseExpirySource(s string) (ExpirySource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "store":
		return ExpiryFromStore, nil
	case "ledger":
		return ExpiryFromLedger, nil
	default:
		return ExpiryFromStore, fmt.Errorf("unknown read expiry %q (want store or ledger): %w", s, errors.ErrConfigValidation)
	}
}

// SweepResult reports what a purge sweep removed.
type SweepResult struct {
	Removed    int
	Namespaces []string // namespaces whose last entry was purged
}

// NamespaceInfo describes one namespace of the ledger.
type NamespaceInfo struct {
	Name    string
	Entries int
	Size    int64
	Oldest  time.Time
	Newest  time.Time
}

// Info represents cache information.
type Info struct {
	Root         string
	Retention    time.Duration
	Expiry       ExpirySource
	Namespaces   []NamespaceInfo
	TotalEntries int
	TotalSize    int64
}
