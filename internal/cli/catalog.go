// catalog.go implements the catalog command.

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/strongdm/faultline/pkg/faultline/recovery"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the user-facing message for every error code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				file = cfg.CatalogFile
			}

			catalog := recovery.NewCatalog()
			if file != "" {
				if err := catalog.LoadFile(file); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "CODE\tMESSAGE")
			for _, code := range catalog.Codes() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", code, catalog.Message(code))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog override file (default: catalog_file from config)")
	return cmd
}
