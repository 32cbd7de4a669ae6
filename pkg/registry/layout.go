package registry

import (
	"net/url"
	"strings"

	"github.com/glorpus-work/spm/pkg/model"
)

const (
	// DefaultBaseURL is the registry used when none is configured.
	DefaultBaseURL = "https://raw.githubusercontent.com/demenik/spm/main/packages"

	// DefaultSourceExt is the file extension of module sources.
	DefaultSourceExt = ".tengo"

	// ManifestFile is the name of the per-package manifest.
	ManifestFile = "spm.json"
)

// Layout builds registry URLs. Every path segment is escaped, so the result
// depends only on owner, name and version.
type Layout struct {
	BaseURL   string
	SourceExt string
}

// NewLayout applies the defaults for empty fields.
func NewLayout(baseURL, sourceExt string) Layout {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if sourceExt == "" {
		sourceExt = DefaultSourceExt
	}
	return Layout{BaseURL: baseURL, SourceExt: sourceExt}
}

// ManifestURL returns BaseURL/<owner>/<name>/spm.json.
func (l Layout) ManifestURL(owner, name string) string {
	return l.join(owner, name, ManifestFile)
}

// SourceURL returns BaseURL/<owner>/<name>/<version><ext>.
func (l Layout) SourceURL(id model.Identifier) string {
	return l.join(id.Owner, id.Name, id.Version+l.SourceExt)
}

func (l Layout) join(segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(l.BaseURL, "/"))
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}
