package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/model"
	"github.com/spf13/cobra"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve REF",
		Short: "Resolve a reference to a concrete version",
		Long: `Resolve owner/name[@version] against the registry manifest without installing it.
Versions that are not aliases in the manifest are passed through unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps()
			if err != nil {
				return err
			}
			id, err := model.ParseIdentifier(args[0])
			if err != nil {
				return err
			}
			resolved, err := d.resolver.Resolve(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), resolved.String())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), d.resolver.Layout().SourceURL(resolved))
			return nil
		},
	}

	return cmd
}

// NewVersionsCmd creates the versions command.
func NewVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions OWNER/NAME",
		Short: "List the releases and aliases of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps()
			if err != nil {
				return err
			}
			owner, name, ok := strings.Cut(strings.TrimSpace(args[0]), "/")
			if !ok || owner == "" || name == "" || strings.Contains(name, "@") {
				return fmt.Errorf("%q: expected OWNER/NAME: %w", args[0], errors.ErrMalformedReference)
			}
			m, err := d.resolver.Manifest(cmd.Context(), owner, name)
			if err != nil {
				return err
			}
			return printVersions(cmd.OutOrStdout(), m.Releases(), m.Aliases(), m.Versions)
		},
	}

	return cmd
}

func printVersions(out io.Writer, releases, aliases []string, versions map[string]string) error {
	w := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(w, "RELEASE\tALIASES")
	for _, release := range releases {
		var names []string
		for _, alias := range aliases {
			if versions[alias] == release && alias != release {
				names = append(names, alias)
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", release, strings.Join(names, ", "))
	}
	return w.Flush()
}
