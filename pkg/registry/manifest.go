// Package registry resolves version aliases against the remote package registry.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hashicorp/go-version"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/model"
)

// Manifest is the per-package registry document mapping aliases to concrete versions.
type Manifest struct {
	Versions map[string]string `json:"versions"`
}

// ParseManifest decodes a manifest. A document without a versions object is malformed.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrManifestUnavailable, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports whether the manifest carries a versions object.
func (m *Manifest) Validate() error {
	if m == nil || m.Versions == nil {
		return fmt.Errorf("missing versions object: %w", errors.ErrManifestUnavailable)
	}
	return nil
}

// Resolve maps an alias to its concrete version. Anything that is not an
// alias is taken to be concrete already and returned unchanged.
func (m *Manifest) Resolve(versionOrAlias string) string {
	if concrete, ok := m.Versions[versionOrAlias]; ok {
		return concrete
	}
	return versionOrAlias
}

// Aliases returns the alias names in lexical order.
func (m *Manifest) Aliases() []string {
	aliases := make([]string, 0, len(m.Versions))
	for alias := range m.Versions {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Releases returns the distinct concrete versions the manifest points at,
// newest first. Versions that are not semantic versions sort after the
// semantic ones, lexically.
func (m *Manifest) Releases() []string {
	seen := make(map[string]struct{}, len(m.Versions))
	releases := make([]string, 0, len(m.Versions))
	for _, concrete := range m.Versions {
		if _, ok := seen[concrete]; ok {
			continue
		}
		seen[concrete] = struct{}{}
		releases = append(releases, concrete)
	}

	sort.SliceStable(releases, func(i, j int) bool {
		vi, erri := version.NewVersion(releases[i])
		vj, errj := version.NewVersion(releases[j])
		switch {
		case erri == nil && errj == nil:
			if vi.Equal(vj) {
				return releases[i] < releases[j]
			}
			return vi.GreaterThan(vj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return releases[i] < releases[j]
		}
	})
	return releases
}

// ResolveWith resolves id against a caller supplied manifest without any I/O.
func ResolveWith(m *Manifest, id model.Identifier) model.Identifier {
	return id.WithVersion(m.Resolve(id.Version))
}
