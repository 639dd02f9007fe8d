// check.go implements the check command.

package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the configuration and show the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			warnings := cfg.Normalize()

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "SETTING\tVALUE")
			_, _ = fmt.Fprintf(w, "enabled\t%t\n", cfg.Enabled)
			_, _ = fmt.Fprintf(w, "environment\t%s\n", cfg.Environment)
			_, _ = fmt.Fprintf(w, "production\t%t\n", cfg.IsProduction())
			_, _ = fmt.Fprintf(w, "min level\t%s\n", cfg.MinimumLevel())
			_, _ = fmt.Fprintf(w, "services\t%s\n", cfg.Service)
			_, _ = fmt.Fprintf(w, "sample rate\t%g\n", cfg.SampleRate)
			_, _ = fmt.Fprintf(w, "timeout\t%s\n", cfg.Timeout)
			_, _ = fmt.Fprintf(w, "max logs\t%d\n", cfg.MaxLogs)
			_ = w.Flush()

			for _, warning := range warnings {
				_, _ = fmt.Fprintf(out, "warning: %s\n", warning)
			}
			if strict && len(warnings) > 0 {
				return fmt.Errorf("%d configuration warning(s): %s", len(warnings), strings.Join(warnings, "; "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the configuration needed repairs")
	return cmd
}
