// Package orchestrator runs the import flow: parse, resolve, install, load.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/glorpus-work/spm/pkg/model"
)

// Orchestrator ties the resolver, installer and loader together for imports.
type Orchestrator struct {
	Resolver  VersionResolver
	Installer ModuleInstaller
	Loader    ModuleLoader
	Hooks     Hooks // Hooks for progress and event notifications
}

// New constructs an Orchestrator. Helper for wiring.
func New(resolver VersionResolver, inst ModuleInstaller, ld ModuleLoader, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		Resolver:  resolver,
		Installer: inst,
		Loader:    ld,
		Hooks:     hooks,
	}
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Import imports a single reference. The steps run strictly in the order
// parse, resolve, install, load. Failures are returned as *errors.ImportError.
func (o *Orchestrator) Import(ctx context.Context, ref string) (*Result, error) {
	if o.Resolver == nil || o.Installer == nil || o.Loader == nil {
		return nil, fmt.Errorf("orchestrator is not fully configured")
	}

	reqID := uuid.NewString()

	emit(o.Hooks, Event{Phase: PhaseParsing, ID: ref, RequestID: reqID})
	id, err := model.ParseIdentifier(ref)
	if err != nil {
		return nil, o.fail(reqID, ref, errors.StageParse, err)
	}

	emit(o.Hooks, Event{Phase: PhaseResolving, ID: id.String(), RequestID: reqID})
	resolved, err := o.Resolver.Resolve(ctx, id)
	if err != nil {
		return nil, o.fail(reqID, ref, errors.StageResolve, err)
	}

	emit(o.Hooks, Event{Phase: PhaseInstalling, ID: resolved.String(), RequestID: reqID})
	rec, err := o.Installer.EnsureInstalled(ctx, resolved)
	if err != nil {
		return nil, o.fail(reqID, ref, errors.StageInstall, err)
	}

	emit(o.Hooks, Event{Phase: PhaseLoading, ID: resolved.String(), RequestID: reqID})
	mod, err := o.Loader.Load(ctx, rec)
	if err != nil {
		return nil, o.fail(reqID, ref, errors.StageLoad, err)
	}

	emit(o.Hooks, Event{Phase: PhaseDone, ID: resolved.String(), Msg: rec.Digest, RequestID: reqID})
	logger.Debug("Imported module", logger.Fields{"ref": ref, "module": resolved.String(), "request_id": reqID})

	return &Result{Ref: ref, ID: resolved, Record: rec, Module: mod}, nil
}

// ImportAll imports several references with bounded concurrency. The first
// failure cancels the remaining imports. Results keep the order of refs.
func (o *Orchestrator) ImportAll(ctx context.Context, refs []string, opts ImportOptions) ([]*Result, error) {
	results := make([]*Result, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, ref := range refs {
		g.Go(func() error {
			res, err := o.Import(gctx, ref)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) fail(reqID, ref string, stage errors.Stage, err error) error {
	emit(o.Hooks, Event{Phase: PhaseError, ID: ref, Msg: err.Error(), RequestID: reqID})
	return errors.NewImportError(ref, stage, err)
}
