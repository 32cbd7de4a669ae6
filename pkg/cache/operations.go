package cache

import (
	"fmt"
	"strings"
	"time"
)

// FormatInfo renders cache information for the terminal.
func FormatInfo(info *Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Cache Information:
  Directory:    %s
  Retention:    %s
  Read expiry:  %s
  Total Size:   %s (%d entries)`,
		info.Root,
		info.Retention,
		info.Expiry,
		formatBytes(info.TotalSize),
		info.TotalEntries,
	)
	for _, ns := range info.Namespaces {
		fmt.Fprintf(&b, "\n  - %s: %s (%d entries, newest %s)",
			ns.Name, formatBytes(ns.Size), ns.Entries, formatTime(ns.Newest))
	}
	return b.String()
}

// FormatSweep renders the result of a sweep.
func FormatSweep(result *SweepResult) string {
	if result.Removed == 0 {
		return "No cache entries were expired."
	}
	msg := fmt.Sprintf("Removed %d expired cache entries.", result.Removed)
	if len(result.Namespaces) > 0 {
		msg += fmt.Sprintf("\n- Emptied namespaces: %s", strings.Join(result.Namespaces, ", "))
	}
	return msg
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC1123)
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T", "P", "E"}
	if exp < len(units) {
		return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
	}
	return fmt.Sprintf("%d B", bytes)
}
