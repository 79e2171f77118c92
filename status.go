package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

func newStatusCmd(flags *globalFlags, connect connector) *cobra.Command {
	return &cobra.Command{
		Use:   "status [name...]",
		Short: "Show endpoint status; names without an endpoint report Nonexistent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := connect(cmd)
			if err != nil {
				return err
			}
			live, err := ops.ListLiveInstances(cmd.Context())
			if err != nil {
				return err
			}
			statuses := sagemaker.StatusOf(live)
			if len(args) > 0 {
				statuses = sagemaker.Reconcile(args, live)
			}
			if flags.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), statuses)
			}
			return writeStatusTable(cmd.OutOrStdout(), statuses)
		},
	}
}

func writeStatusTable(w io.Writer, statuses []sagemaker.EndpointStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Status)
	}
	return tw.Flush()
}
