package orchestrator

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/spm/pkg/errors"
	httpmocks "github.com/glorpus-work/spm/pkg/http/mocks"
	"github.com/glorpus-work/spm/pkg/installer"
	"github.com/glorpus-work/spm/pkg/loader"
	"github.com/glorpus-work/spm/pkg/model"
	ocmocks "github.com/glorpus-work/spm/pkg/orchestrator/mocks"
	"github.com/glorpus-work/spm/pkg/registry"
	"github.com/glorpus-work/spm/pkg/store"
)

const testBaseURL = "https://registry.example/packages"

func TestImport_EndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fetcher := httpmocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		FetchJSON(gomock.Any(), testBaseURL+"/acme/widgets/spm.json", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, v any) error {
			return json.Unmarshal([]byte(`{"versions":{"latest":"2.1.0"}}`), v)
		}).
		Times(2)
	fetcher.EXPECT().
		FetchText(gomock.Any(), testBaseURL+"/acme/widgets/2.1.0.tengo").
		Return(`name := "widgets " + module_version`, nil).
		Times(1)

	layout := registry.NewLayout(testBaseURL, "")
	orch := New(
		registry.NewResolver(fetcher, layout),
		installer.New(store.NewMemStore(), fetcher, layout),
		loader.New(),
		Hooks{},
	)

	for range 2 {
		res, err := orch.Import(context.Background(), "acme/widgets@latest")
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if res.ID.Version != "2.1.0" {
			t.Fatalf("expected version 2.1.0, got %s", res.ID.Version)
		}
		if res.Record.Source != `name := "widgets " + module_version` {
			t.Fatalf("unexpected source: %q", res.Record.Source)
		}
		name, ok := res.Module.Get("name")
		if !ok || name != "widgets 2.1.0" {
			t.Fatalf("unexpected module export name=%v", name)
		}
	}
}

func TestImport_Events(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := ocmocks.NewMockVersionResolver(ctrl)
	inst := ocmocks.NewMockModuleInstaller(ctrl)
	ld := ocmocks.NewMockModuleLoader(ctrl)

	id := model.MustParseIdentifier("acme/widgets@latest")
	resolved := id.WithVersion("2.1.0")
	rec := &installer.Record{ID: resolved, Digest: "abc"}

	gomock.InOrder(
		resolver.EXPECT().Resolve(gomock.Any(), id).Return(resolved, nil),
		inst.EXPECT().EnsureInstalled(gomock.Any(), resolved).Return(rec, nil),
		ld.EXPECT().Load(gomock.Any(), rec).Return(&loader.Module{ID: resolved}, nil),
	)

	var events []Event
	orch := New(resolver, inst, ld, Hooks{OnEvent: func(e Event) { events = append(events, e) }})

	if _, err := orch.Import(context.Background(), "acme/widgets"); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	phases := make([]string, 0, len(events))
	for _, e := range events {
		phases = append(phases, e.Phase)
		if e.RequestID == "" || e.RequestID != events[0].RequestID {
			t.Fatalf("events of one import must share a request id: %+v", events)
		}
	}
	want := []string{PhaseParsing, PhaseResolving, PhaseInstalling, PhaseLoading, PhaseDone}
	if strings.Join(phases, ",") != strings.Join(want, ",") {
		t.Fatalf("expected phases %v, got %v", want, phases)
	}
	if events[len(events)-1].ID != "acme/widgets@2.1.0" {
		t.Fatalf("done event should carry the resolved id, got %q", events[len(events)-1].ID)
	}
}

func TestImport_FailureStages(t *testing.T) {
	id := model.MustParseIdentifier("acme/widgets@latest")
	resolved := id.WithVersion("2.1.0")
	rec := &installer.Record{ID: resolved}

	tests := []struct {
		name   string
		ref    string
		setup  func(*ocmocks.MockVersionResolver, *ocmocks.MockModuleInstaller, *ocmocks.MockModuleLoader)
		stage  errors.Stage
		target error
	}{
		{
			name:   "parse",
			ref:    "widgets",
			setup:  func(*ocmocks.MockVersionResolver, *ocmocks.MockModuleInstaller, *ocmocks.MockModuleLoader) {},
			stage:  errors.StageParse,
			target: errors.ErrMalformedReference,
		},
		{
			name: "resolve",
			ref:  "acme/widgets@latest",
			setup: func(r *ocmocks.MockVersionResolver, _ *ocmocks.MockModuleInstaller, _ *ocmocks.MockModuleLoader) {
				r.EXPECT().Resolve(gomock.Any(), id).Return(model.Identifier{}, errors.ErrManifestUnavailable)
			},
			stage:  errors.StageResolve,
			target: errors.ErrManifestUnavailable,
		},
		{
			name: "install",
			ref:  "acme/widgets@latest",
			setup: func(r *ocmocks.MockVersionResolver, i *ocmocks.MockModuleInstaller, _ *ocmocks.MockModuleLoader) {
				r.EXPECT().Resolve(gomock.Any(), id).Return(resolved, nil)
				i.EXPECT().EnsureInstalled(gomock.Any(), resolved).Return(nil, errors.ErrInstallFailed)
			},
			stage:  errors.StageInstall,
			target: errors.ErrInstallFailed,
		},
		{
			name: "load",
			ref:  "acme/widgets@latest",
			setup: func(r *ocmocks.MockVersionResolver, i *ocmocks.MockModuleInstaller, l *ocmocks.MockModuleLoader) {
				r.EXPECT().Resolve(gomock.Any(), id).Return(resolved, nil)
				i.EXPECT().EnsureInstalled(gomock.Any(), resolved).Return(rec, nil)
				l.EXPECT().Load(gomock.Any(), rec).Return(nil, errors.ErrModuleLoad)
			},
			stage:  errors.StageLoad,
			target: errors.ErrModuleLoad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			resolver := ocmocks.NewMockVersionResolver(ctrl)
			inst := ocmocks.NewMockModuleInstaller(ctrl)
			ld := ocmocks.NewMockModuleLoader(ctrl)
			tt.setup(resolver, inst, ld)

			var last Event
			orch := New(resolver, inst, ld, Hooks{OnEvent: func(e Event) { last = e }})

			_, err := orch.Import(context.Background(), tt.ref)
			if err == nil {
				t.Fatalf("expected an error")
			}

			var importErr *errors.ImportError
			if !stderrors.As(err, &importErr) {
				t.Fatalf("expected *ImportError, got %T", err)
			}
			if importErr.Stage != tt.stage || importErr.Ref != tt.ref {
				t.Fatalf("unexpected import error: %+v", importErr)
			}
			if !stderrors.Is(err, tt.target) {
				t.Fatalf("expected %v in chain, got %v", tt.target, err)
			}
			if !strings.Contains(err.Error(), tt.ref) || !strings.Contains(err.Error(), string(tt.stage)) {
				t.Fatalf("message must name ref and stage: %q", err.Error())
			}
			if last.Phase != PhaseError {
				t.Fatalf("expected a final error event, got %+v", last)
			}
		})
	}
}

func TestImport_NotConfigured(t *testing.T) {
	orch := &Orchestrator{}
	if _, err := orch.Import(context.Background(), "acme/widgets"); err == nil {
		t.Fatalf("expected an error for an unconfigured orchestrator")
	}
}

func TestImportAll_KeepsOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := ocmocks.NewMockVersionResolver(ctrl)
	inst := ocmocks.NewMockModuleInstaller(ctrl)
	ld := ocmocks.NewMockModuleLoader(ctrl)

	resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id model.Identifier) (model.Identifier, error) {
			return id.WithVersion("1.0.0"), nil
		}).Times(3)
	inst.EXPECT().EnsureInstalled(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id model.Identifier) (*installer.Record, error) {
			return &installer.Record{ID: id}, nil
		}).Times(3)
	ld.EXPECT().Load(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *installer.Record) (*loader.Module, error) {
			return &loader.Module{ID: rec.ID}, nil
		}).Times(3)

	var mu sync.Mutex
	seen := map[string]bool{}
	orch := New(resolver, inst, ld, Hooks{OnEvent: func(e Event) {
		mu.Lock()
		seen[e.RequestID] = true
		mu.Unlock()
	}})

	refs := []string{"acme/a", "acme/b", "acme/c"}
	results, err := orch.ImportAll(context.Background(), refs, ImportOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("ImportAll failed: %v", err)
	}
	for i, res := range results {
		if res.Ref != refs[i] || res.ID.String() != refs[i]+"@1.0.0" {
			t.Fatalf("result %d out of order: %+v", i, res)
		}
	}
	if len(seen) != len(refs) {
		t.Fatalf("expected one request id per import, got %d", len(seen))
	}
}

func TestImportAll_FirstErrorWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	resolver := ocmocks.NewMockVersionResolver(ctrl)
	inst := ocmocks.NewMockModuleInstaller(ctrl)
	ld := ocmocks.NewMockModuleLoader(ctrl)

	orch := New(resolver, inst, ld, Hooks{})
	_, err := orch.ImportAll(context.Background(), []string{"not-a-ref"}, ImportOptions{})

	var importErr *errors.ImportError
	if !stderrors.As(err, &importErr) || importErr.Stage != errors.StageParse {
		t.Fatalf("expected a parse-stage import error, got %v", err)
	}
}
