package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/glorpus-work/spm/pkg/model"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var nameFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed modules",
		Long: `List all modules in the local store.

Use --name to filter modules by owner/name (partial match).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := loadDeps()
			if err != nil {
				return err
			}
			records, err := d.installer.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			w := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
			_, _ = fmt.Fprintln(w, "MODULE\tVERSION\tDIGEST\tINSTALLED")
			for _, rec := range records {
				if nameFilter != "" && !strings.Contains(rec.ID.Package(), nameFilter) {
					continue
				}
				shown++
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					rec.ID.Package(), rec.ID.Version, rec.Digest, rec.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			if shown == 0 {
				_, _ = fmt.Fprintln(out, "No modules installed")
				return nil
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Filter modules by owner/name (partial match)")

	return cmd
}

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove REF...",
		Aliases: []string{"rm", "uninstall"},
		Short:   "Remove installed modules",
		Long:    "Delete modules from the local store. Aliases are resolved against the registry first.",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps()
			if err != nil {
				return err
			}
			for _, ref := range args {
				id, err := model.ParseIdentifier(ref)
				if err != nil {
					return err
				}
				if id.Version == model.DefaultAlias || id.Version == model.DevAlias {
					if id, err = d.resolver.Resolve(cmd.Context(), id); err != nil {
						return err
					}
				}
				if err := d.installer.Remove(id); err != nil {
					return err
				}
				logger.Success("Module removed", logger.Fields{"module": id.String()})
			}
			return nil
		},
	}

	return cmd
}
