package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/glorpus-work/spm/pkg/update"
	"github.com/spf13/cobra"
)

// NewSelfUpdateCmd creates the self-update command.
func NewSelfUpdateCmd() *cobra.Command {
	var (
		channel string
		discard bool
		pending bool
	)

	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Check for a newer spm release",
		Long: `Compare the running version with the release manifest of spm and stage
the newer release. Use --channel dev to follow pre-releases.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := loadDeps()
			if err != nil {
				return err
			}
			checker, err := d.checker(channel)
			if err != nil {
				return err
			}
			if discard {
				return checker.Clear()
			}
			if pending {
				staged, err := checker.Pending()
				if err != nil {
					return err
				}
				return printPending(cmd.OutOrStdout(), staged)
			}
			status, err := checker.Check(cmd.Context(), Version)
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}
			return printStatus(cmd.OutOrStdout(), status)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Release channel to follow (stable or dev, default from config)")
	cmd.Flags().BoolVar(&discard, "clear", false, "Discard a staged update")
	cmd.Flags().BoolVar(&pending, "pending", false, "Show the staged update without contacting the registry")

	return cmd
}

func printStatus(out io.Writer, status *update.Status) error {
	if !status.Available {
		_, err := fmt.Fprintf(out, "spm %s is up to date (%s channel)\n", status.Running, status.Channel)
		return err
	}
	kind := "update"
	if status.Downgrade {
		kind = "downgrade"
	}
	_, err := fmt.Fprintf(out, "spm %s -> %s (%s, %s channel) staged\n", status.Running, status.Latest, kind, status.Channel)
	return err
}

func printPending(out io.Writer, p *update.Pending) error {
	if p == nil {
		_, err := fmt.Fprintln(out, "No update staged")
		return err
	}
	kind := "update"
	if p.Downgrade {
		kind = "downgrade"
	}
	_, err := fmt.Fprintf(out, "spm %s staged (%s, %s channel) at %s\n", p.Version, kind, p.Channel, p.StagedAt.Format(time.RFC3339))
	return err
}
