package cache

import "time"

const (
	// LedgerFile is the shared purge ledger at the store root.
	LedgerFile = "cache.json"

	// DefaultRetention is the age after which a sweep purges an entry.
	DefaultRetention = 7 * 24 * time.Hour
)

// reservedPrefixes are matched case-insensitively against namespace names.
// The first one is the module directory of the installer.
var reservedPrefixes = []string{"spm", LedgerFile}
