//go:generate mockgen -source=types.go -destination=mocks/mock_orchestrator.go -package=mocks

package orchestrator

import (
	"context"

	"github.com/glorpus-work/spm/pkg/installer"
	"github.com/glorpus-work/spm/pkg/loader"
	"github.com/glorpus-work/spm/pkg/model"
)

// VersionResolver is the subset of the registry resolver used by the orchestrator.
type VersionResolver interface {
	Resolve(ctx context.Context, id model.Identifier) (model.Identifier, error)
}

// ModuleInstaller is the subset of the installer used by the orchestrator.
type ModuleInstaller interface {
	EnsureInstalled(ctx context.Context, id model.Identifier) (*installer.Record, error)
}

// ModuleLoader turns an installed record into a module.
type ModuleLoader interface {
	Load(ctx context.Context, rec *installer.Record) (*loader.Module, error)
}

// Import phases reported through Hooks.
const (
	PhaseParsing    = "parsing"
	PhaseResolving  = "resolving"
	PhaseInstalling = "installing"
	PhaseLoading    = "loading"
	PhaseDone       = "done"
	PhaseError      = "error"
)

// Event represents a simple progress notification.
type Event struct {
	Phase     string // parsing|resolving|installing|loading|done|error
	ID        string // reference or resolved identifier
	Msg       string
	RequestID string // shared by all events of one Import call
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// ImportOptions control ImportAll execution.
type ImportOptions struct {
	Concurrency int
}

// Result is a successful import.
type Result struct {
	Ref    string
	ID     model.Identifier
	Record *installer.Record
	Module *loader.Module
}
