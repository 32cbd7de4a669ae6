// Package model provides the data structures shared by the resolver, installer
// and import orchestration of spm.
package model

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/glorpus-work/spm/pkg/errors"
)

const (
	// DefaultAlias is used when a reference carries no version.
	DefaultAlias = "latest"
	// DevAlias points at the newest pre-release.
	DevAlias = "dev-latest"
)

// Identifier is a parsed owner/name@version reference. Version is either a
// concrete release or an alias that still has to be resolved.
type Identifier struct {
	Owner   string
	Name    string
	Version string
}

// ParseIdentifier parses a reference of the form owner/name[@version].
func ParseIdentifier(ref string) (Identifier, error) {
	ref = strings.TrimSpace(ref)

	owner, rest, found := strings.Cut(ref, "/")
	if !found {
		return Identifier{}, fmt.Errorf("%q: missing '/' between owner and name: %w", ref, errors.ErrMalformedReference)
	}

	name, version, _ := strings.Cut(rest, "@")
	if version == "" {
		version = DefaultAlias
	}

	id := Identifier{Owner: owner, Name: name, Version: version}
	if err := id.Validate(); err != nil {
		return Identifier{}, fmt.Errorf("%q: %w", ref, err)
	}
	return id, nil
}

// MustParseIdentifier is like ParseIdentifier but panics on error.
func MustParseIdentifier(ref string) Identifier {
	id, err := ParseIdentifier(ref)
	if err != nil {
		panic(err)
	}
	return id
}

// Validate checks the invariants of an identifier.
func (id Identifier) Validate() error {
	switch {
	case id.Owner == "":
		return fmt.Errorf("empty owner: %w", errors.ErrMalformedReference)
	case id.Name == "":
		return fmt.Errorf("empty name: %w", errors.ErrMalformedReference)
	case id.Version == "":
		return fmt.Errorf("empty version: %w", errors.ErrMalformedReference)
	case strings.ContainsAny(id.Owner, `@/\`):
		return fmt.Errorf("owner %q contains a reserved character: %w", id.Owner, errors.ErrMalformedReference)
	case strings.ContainsAny(id.Name, `/\`):
		return fmt.Errorf("name %q contains a path separator: %w", id.Name, errors.ErrMalformedReference)
	case strings.ContainsAny(id.Version, `/\`):
		return fmt.Errorf("version %q contains a path separator: %w", id.Version, errors.ErrMalformedReference)
	}
	return nil
}

// String returns the canonical owner/name@version form.
func (id Identifier) String() string {
	return id.Owner + "/" + id.Name + "@" + id.Version
}

// Package returns owner/name without the version.
func (id Identifier) Package() string {
	return id.Owner + "/" + id.Name
}

// WithVersion returns a copy of id pointing at version.
func (id Identifier) WithVersion(version string) Identifier {
	id.Version = version
	return id
}

// Key returns the canonical form percent-encoded so it can be used as a single
// file name, e.g. acme%2Fwidgets%402.1.0.
func (id Identifier) Key() string {
	return EncodeComponent(id.String())
}

// ParseKey decodes a key produced by Key.
func ParseKey(key string) (Identifier, error) {
	decoded, err := url.PathUnescape(key)
	if err != nil {
		return Identifier{}, fmt.Errorf("%q: %w: %w", key, errors.ErrMalformedReference, err)
	}
	owner, rest, found := strings.Cut(decoded, "/")
	if !found {
		return Identifier{}, fmt.Errorf("%q: %w", key, errors.ErrMalformedReference)
	}
	name, version, found := strings.Cut(rest, "@")
	if !found {
		return Identifier{}, fmt.Errorf("%q: missing version: %w", key, errors.ErrMalformedReference)
	}
	id := Identifier{Owner: owner, Name: name, Version: version}
	if err := id.Validate(); err != nil {
		return Identifier{}, err
	}
	return id, nil
}

// EncodeComponent percent-encodes every byte outside the unreserved set
// A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
