// Package testutil provides an in-process package registry for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/glorpus-work/spm/pkg/registry"
)

// Registry serves spm.json manifests and module sources over HTTP and
// counts the requests it receives per path.
type Registry struct {
	Server *httptest.Server
	URL    string

	mu        sync.Mutex
	manifests map[string]map[string]string // owner/name -> versions
	sources   map[string]string            // owner/name/version -> source
	hits      map[string]int
}

// NewRegistry starts a registry that is shut down when the test ends.
func NewRegistry(t *testing.T) *Registry {
	t.Helper()
	r := &Registry{
		manifests: make(map[string]map[string]string),
		sources:   make(map[string]string),
		hits:      make(map[string]int),
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	r.URL = r.Server.URL
	t.Cleanup(r.Server.Close)
	return r
}

// AddPackage publishes the version map of owner/name.
func (r *Registry) AddPackage(pkg string, versions map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[pkg] = versions
}

// AddSource publishes the module source of owner/name at version.
func (r *Registry) AddSource(pkg, version, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[pkg+"/"+version] = source
}

// Hits returns how often path was requested.
func (r *Registry) Hits(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := strings.TrimPrefix(req.URL.Path, "/")
	r.hits["/"+p]++

	if pkg, ok := strings.CutSuffix(p, "/"+registry.ManifestFile); ok {
		versions, found := r.manifests[pkg]
		if !found {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(registry.Manifest{Versions: versions})
		return
	}

	key, ok := strings.CutSuffix(p, registry.DefaultSourceExt)
	if !ok {
		http.NotFound(w, req)
		return
	}
	source, found := r.sources[key]
	if !found {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(source))
}

// WriteConfig writes a config file pointing at the registry with its store
// under root and returns the config path.
func (r *Registry) WriteConfig(t *testing.T, root string, extra string) string {
	t.Helper()
	cfg := "settings:\n" +
		"  root_dir: " + filepath.Join(root, "store") + "\n" +
		"  registry_url: " + r.URL + "\n" +
		"  http_timeout: 5s\n" +
		"  log_level: error\n" + extra
	path := filepath.Join(root, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}
