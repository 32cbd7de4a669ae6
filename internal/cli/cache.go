package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/glorpus-work/spm/pkg/cache"
	"github.com/glorpus-work/spm/pkg/logger"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the TTL cache",
		Long:  "Read, write and sweep namespaced cache entries kept in the local store",
	}

	cmd.AddCommand(
		newCacheReadCmd(),
		newCacheWriteCmd(),
		newCacheFetchCmd(),
		newCacheRemoveCmd(),
		newCacheSweepCmd(),
		newCacheInfoCmd(),
	)

	return cmd
}

func openCache(namespace string) (*cache.Cache, error) {
	d, err := loadDeps()
	if err != nil {
		return nil, err
	}
	return d.cache.Open(namespace)
}

func newCacheReadCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "read NAMESPACE KEY",
		Short: "Print a cache entry",
		Long:  "Print the entry stored under KEY. With --ttl, an entry older than the TTL is deleted and nothing is printed.",
		Args:  cobra.ExactArgs(cacheKeyArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache(args[0])
			if err != nil {
				return err
			}
			value := c.Read(args[1], ttl)
			if value == nil {
				return fmt.Errorf("no cache entry for %s in %s", args[1], args[0])
			}
			return printValue(cmd.OutOrStdout(), value)
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Maximum age of the entry (0 disables the check)")

	return cmd
}

func newCacheWriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write NAMESPACE KEY VALUE",
		Short: "Store a cache entry",
		Long:  "Store VALUE under KEY. Valid JSON is stored as a structured value, anything else as a string.",
		Args:  cobra.ExactArgs(cacheWriteArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := openCache(args[0])
			if err != nil {
				return err
			}
			if err := c.Write(args[1], parseValue(args[2])); err != nil {
				return err
			}
			logger.Success("Cache entry written", logger.Fields{"namespace": c.Namespace(), "key": args[1]})
			return nil
		},
	}

	return cmd
}

func newCacheFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch NAMESPACE KEY URL",
		Short: "Download an artifact through the cache",
		Long:  "Write the artifact cached under KEY to stdout, downloading it from URL first when it is not cached.",
		Args:  cobra.ExactArgs(cacheFetchArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps()
			if err != nil {
				return err
			}
			c, err := d.cache.Open(args[0])
			if err != nil {
				return err
			}
			data, err := cache.LoadArtifact(cmd.Context(), c, args[1], args[2], d.fetcher)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	return cmd
}

func newCacheRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm NAMESPACE KEY",
		Aliases: []string{"remove"},
		Short:   "Delete a cache entry",
		Args:    cobra.ExactArgs(cacheKeyArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := openCache(args[0])
			if err != nil {
				return err
			}
			return c.Remove(args[1])
		},
	}

	return cmd
}

func newCacheSweepCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired cache entries",
		Long: `Remove every entry older than the configured retention.
With --interval the sweep repeats until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := loadDeps()
			if err != nil {
				return err
			}
			if interval > 0 {
				logger.Info("Sweeping cache periodically", logger.Fields{"interval": interval.String()})
				return d.cache.RunSweeper(cmd.Context(), interval)
			}
			result, err := d.cache.Sweep()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cache.FormatSweep(result))
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Repeat the sweep at this interval until interrupted")

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display the namespaces and entries recorded in the cache ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := loadDeps()
			if err != nil {
				return err
			}
			info, err := d.cache.Info()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cache.FormatInfo(info))
			return nil
		},
	}

	return cmd
}

// parseValue decodes raw as JSON and falls back to the plain string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func printValue(out io.Writer, value any) error {
	if s, ok := value.(string); ok {
		_, err := fmt.Fprintln(out, s)
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
