// Package loader turns installed module sources into usable modules by
// compiling and running them as Tengo scripts.
package loader

import (
	"context"
	"fmt"
	"sort"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/installer"
	"github.com/glorpus-work/spm/pkg/model"
)

// Variables injected into every module.
const (
	VarOwner   = "module_owner"
	VarName    = "module_name"
	VarVersion = "module_version"
)

// DefaultModules are the standard library modules a module may import.
var DefaultModules = []string{"fmt", "math", "strings", "text", "times", "json"}

// Loader compiles and runs module sources.
type Loader struct {
	modules []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithModules replaces the importable standard modules.
func WithModules(names ...string) Option {
	return func(l *Loader) {
		l.modules = names
	}
}

// New creates a new Loader.
func New(opts ...Option) *Loader {
	l := &Loader{modules: DefaultModules}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Module is a loaded module and the top-level variables it defined.
type Module struct {
	ID     model.Identifier
	Digest string
	vars   map[string]any
}

// Load runs the source of rec and collects its globals.
func (l *Loader) Load(ctx context.Context, rec *installer.Record) (*Module, error) {
	script := tengo.NewScript([]byte(rec.Source))
	script.SetImports(stdlib.GetModuleMap(l.modules...))

	injected := map[string]string{
		VarOwner:   rec.ID.Owner,
		VarName:    rec.ID.Name,
		VarVersion: rec.ID.Version,
	}
	for name, value := range injected {
		if err := script.Add(name, value); err != nil {
			return nil, fmt.Errorf("failed to add %s to module: %w", name, err)
		}
	}

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", rec.ID, errors.ErrModuleLoad, err)
	}

	vars := make(map[string]any)
	for _, v := range compiled.GetAll() {
		if _, ok := injected[v.Name()]; ok {
			continue
		}
		vars[v.Name()] = v.Value()
	}

	return &Module{ID: rec.ID, Digest: rec.Digest, vars: vars}, nil
}

// Get returns the value of a top-level variable.
func (m *Module) Get(name string) (any, bool) {
	v, ok := m.vars[name]
	return v, ok
}

// Exports returns a copy of all top-level variables.
func (m *Module) Exports() map[string]any {
	out := make(map[string]any, len(m.vars))
	for k, v := range m.vars {
		out[k] = v
	}
	return out
}

// Names returns the exported variable names, sorted.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.vars))
	for name := range m.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
