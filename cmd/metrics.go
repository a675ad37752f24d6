package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/wres/internal/domain/metric"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the supported metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := metric.NewRegistry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "METRIC\tINPUT\tOUTPUT\tSKILL")
			for _, id := range reg.IDs() {
				d, _ := reg.Descriptor(id)
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", d.ID, d.Input, d.Output, d.Skill)
			}
			return w.Flush()
		},
	}
}
