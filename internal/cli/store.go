package cli

import (
	"fmt"

	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/glorpus-work/spm/pkg/snapshot"
	"github.com/spf13/cobra"
)

// NewStoreCmd creates the store command with subcommands.
func NewStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Back up and restore the local store",
		Long:  "Export the installed modules, the cache and the ledger to a .tar.gz archive, or restore them from one",
	}

	cmd.AddCommand(
		newStoreExportCmd(),
		newStoreRestoreCmd(),
		newStoreDirCmd(),
	)

	return cmd
}

func newStoreExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export ARCHIVE",
		Short: "Write the store to a .tar.gz archive",
		Args:  cobra.ExactArgs(snapshotPathArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			summary, err := snapshot.Export(cmd.Context(), cfg.Settings.RootDir, args[0])
			if err != nil {
				return err
			}
			logger.Success("Store exported", logger.Fields{"archive": args[0], "files": summary.Files, "bytes": summary.Bytes})
			return nil
		},
	}

	return cmd
}

func newStoreRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore ARCHIVE",
		Short: "Restore the store from a .tar.gz archive",
		Long:  "Unpack ARCHIVE into the store root. Existing files with the same name are overwritten.",
		Args:  cobra.ExactArgs(snapshotPathArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			summary, err := snapshot.Restore(cmd.Context(), args[0], cfg.Settings.RootDir)
			if err != nil {
				return err
			}
			logger.Success("Store restored", logger.Fields{"archive": args[0], "files": summary.Files, "bytes": summary.Bytes})
			return nil
		},
	}

	return cmd
}

func newStoreDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir",
		Short: "Show the store root",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cfg.Settings.RootDir)
			return nil
		},
	}

	return cmd
}
