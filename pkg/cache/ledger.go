package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/glorpus-work/spm/pkg/errors"
)

// Ledger maps namespace to key to the write time in Unix milliseconds.
type Ledger map[string]map[string]int64

// DecodeLedger parses the ledger document.
func DecodeLedger(data []byte) (Ledger, error) {
	ledger := Ledger{}
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrLedgerCorrupt, err)
	}
	if ledger == nil {
		// the document was the literal null
		ledger = Ledger{}
	}
	return ledger, nil
}

// Encode renders the ledger document.
func (l Ledger) Encode() ([]byte, error) {
	return json.Marshal(l)
}

// Set records a write of namespace/key at t.
func (l Ledger) Set(namespace, key string, t time.Time) {
	entries := l[namespace]
	if entries == nil {
		entries = make(map[string]int64)
		l[namespace] = entries
	}
	entries[key] = t.UnixMilli()
}

// WrittenAt returns the recorded write time of namespace/key.
func (l Ledger) WrittenAt(namespace, key string) (time.Time, bool) {
	ms, ok := l[namespace][key]
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Delete removes namespace/key and drops the namespace once it is empty.
func (l Ledger) Delete(namespace, key string) {
	entries, ok := l[namespace]
	if !ok {
		return
	}
	delete(entries, key)
	if len(entries) == 0 {
		delete(l, namespace)
	}
}
