package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/glorpus-work/spm/pkg/orchestrator"
	"github.com/glorpus-work/spm/pkg/update"
	"github.com/spf13/cobra"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	var (
		concurrency int
		showExports bool
		skipUpdates bool
	)

	cmd := &cobra.Command{
		Use:   "import REF...",
		Short: "Import modules",
		Long: `Resolve, install and load one or more modules given as owner/name[@version].
A missing version means "latest". Installed modules are never downloaded again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), args, concurrency, showExports, skipUpdates)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of parallel imports (0=from config)")
	cmd.Flags().BoolVar(&showExports, "exports", false, "Print the variables each module exports")
	cmd.Flags().BoolVar(&skipUpdates, "no-update-check", false, "Do not check for a newer spm release")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, refs []string, concurrency int, showExports, skipUpdates bool) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}

	if concurrency <= 0 {
		concurrency = d.cfg.Settings.MaxConcurrent
	}

	var updates <-chan *update.Status
	checkCtx, cancelCheck := context.WithCancel(ctx)
	defer cancelCheck()
	if !skipUpdates {
		checker, err := d.checker("")
		if err != nil {
			return err
		}
		updates = checker.CheckAsync(checkCtx, Version)
	}

	hooks := orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
		if Verbose == nil || !*Verbose {
			return
		}
		if e.Msg != "" {
			_, _ = fmt.Fprintf(out, "%s: %s (%s)\n", e.Phase, e.ID, e.Msg)
		} else {
			_, _ = fmt.Fprintf(out, "%s: %s\n", e.Phase, e.ID)
		}
	}}

	orch := orchestrator.New(d.resolver, d.installer, d.loader, hooks)
	results, err := orch.ImportAll(ctx, refs, orchestrator.ImportOptions{Concurrency: concurrency})
	if err != nil {
		return err
	}

	for _, res := range results {
		_, _ = fmt.Fprintf(out, "%s -> %s (%s)\n", res.Ref, res.ID, res.Record.Digest)
		if showExports {
			exports := res.Module.Exports()
			for _, name := range res.Module.Names() {
				_, _ = fmt.Fprintf(out, "  %s = %v\n", name, exports[name])
			}
		}
	}

	// The update check never delays an import; a result that is not ready is dropped.
	select {
	case status := <-updates:
		if status != nil && status.Available {
			_, _ = fmt.Fprintf(out, "\nspm %s is available (running %s). Run \"spm self-update\" for details.\n",
				status.Latest, status.Running)
		}
	default:
	}

	return nil
}
