package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/glorpus-work/spm/pkg/config"
	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and modify spm configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigGetCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current configuration settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tabWriter := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
			_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
			_, _ = fmt.Fprintln(tabWriter, "-------\t-----")

			settings := cfg.ToMap()
			for _, key := range config.Keys {
				_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", key, settings[key])
			}
			return tabWriter.Flush()
		},
	}

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration key to a specific value",
		Args:  cobra.ExactArgs(setCommandArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := cfg.SetValue(args[0], args[1]); err != nil {
				return fmt.Errorf("failed to set configuration value: %w", err)
			}

			if err := cfg.SaveConfig(getConfigPath()); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			logger.Success("Configuration updated", logger.Fields{"key": args[0], "value": args[1]})
			return nil
		},
	}

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Get a configuration value",
		Long:  "Get the value of a specific configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			value, err := cfg.GetValue(args[0])
			if err != nil {
				return fmt.Errorf("failed to get configuration value: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a default configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			configPath := getConfigPath()

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", configPath)
			}

			if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
				return fmt.Errorf("failed to save default configuration: %w", err)
			}

			logger.Success("Configuration file created", logger.Fields{"path": configPath})
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")

	return cmd
}
