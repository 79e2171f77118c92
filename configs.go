package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// connector loads config and opens the operations for one command.
type connector func(cmd *cobra.Command) (operations, error)

func newConfigsCmd(flags *globalFlags, connect connector) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "configs",
		Short: "List deployable endpoint configs and their live endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ops, err := connect(cmd)
			if err != nil {
				return err
			}
			configs, err := ops.ListConfigs(cmd.Context())
			if err != nil {
				return err
			}
			summaries := make([]sagemaker.ConfigSummary, 0, len(configs))
			for _, name := range slices.Sorted(maps.Keys(configs)) {
				sum := configs[name].Summary()
				if activeOnly && !sum.IsActive {
					continue
				}
				summaries = append(summaries, sum)
			}
			if flags.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			return writeConfigTable(cmd.OutOrStdout(), summaries)
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only show configs with an InService endpoint")
	return cmd
}

func writeConfigTable(w io.Writer, summaries []sagemaker.ConfigSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tACTIVE\tENDPOINTS\tVARIANTS\tCREATED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%s\n",
			s.Name, s.IsActive, s.NumEndpoints, len(s.ProductionVariants), s.CreationTime.UTC().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
