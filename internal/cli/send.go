// send.go implements the send command, an end-to-end delivery smoke test.

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/strongdm/faultline/pkg/faultline"
	"github.com/strongdm/faultline/pkg/faultline/bootstrap"
	"github.com/strongdm/faultline/pkg/faultline/config"
	"github.com/strongdm/faultline/pkg/faultline/telemetry"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		message string
		level   string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one test report through the configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			severity, ok := faultline.ParseSeverity(level)
			if !ok {
				return fmt.Errorf("unknown level %q", level)
			}

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			cfg.SampleRate = 1
			sys := bootstrap.Install(*cfg, bootstrap.Isolated(), bootstrap.WithReporting())
			if sys.Config.Service == config.ServiceNone || !sys.Config.Enabled {
				return errors.New("no telemetry backend configured")
			}

			sys.Reporter.Report(context.Background(), telemetry.Report{
				Message: message,
				Level:   severity,
				Tags:    map[string]string{"origin": "faultline-cli"},
			})

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := sys.Shutdown(ctx); err != nil {
				return fmt.Errorf("flush reports: %w", err)
			}

			failed := 0
			for _, e := range sys.Logger.Logs() {
				if e.Direct() && e.Level == faultline.SeverityWarn {
					slog.Warn(e.Message, "error", e.Err, "meta", e.Metadata)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("report to %s failed with %d delivery warning(s)", sys.Config.Service, failed)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report sent to %s\n", sys.Config.Service)
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "faultline test report", "report message")
	cmd.Flags().StringVar(&level, "level", "error", "report level")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "time to wait for delivery")
	return cmd
}
