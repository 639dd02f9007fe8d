// Package cli implements the faultline command: configuration checks, test
// reports and catalog inspection.
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/strongdm/faultline/pkg/faultline/config"
)

type rootOptions struct {
	cfgPath  string
	envFiles []string
	isDebug  bool
}

// NewRootCommand builds the faultline command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "faultline",
		Short:         "Inspect and exercise a faultline configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.isDebug {
				level = slog.LevelDebug
			}
			stylelog.InitDefault(&tint.Options{
				Level:      level,
				TimeFormat: time.RFC3339,
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgPath, "config", "", "faultline YAML config file")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default .env)")
	cmd.PersistentFlags().BoolVar(&opts.isDebug, "debug", false, "enable debug logging")

	cmd.AddCommand(newCheckCmd(opts), newSendCmd(opts), newCatalogCmd(opts))
	return cmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		slog.Error("faultline failed", "error", err)
		os.Exit(1)
	}
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.cfgPath, o.envFiles...)
}
