package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

func newDeployCmd(connect connector) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "deploy NAME",
		Short: "Create an endpoint for a config and wait until it is InService",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			ops, err := connect(cmd)
			if err != nil {
				return err
			}
			if watch {
				return ops.Watch(cmd.Context(), name, &printSink{w: cmd.OutOrStdout()})
			}
			if err := ops.Deploy(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %s has been successfully deployed.\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Print status changes while deploying")
	return cmd
}

func newRemoveCmd(connect connector) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ENDPOINT",
		Short: "Delete a live endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := connect(cmd)
			if err != nil {
				return err
			}
			msg, err := ops.Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

// printSink writes stream frames as lines.
type printSink struct {
	w io.Writer
}

func (s *printSink) Send(_ context.Context, statuses []sagemaker.EndpointStatus) error {
	for _, st := range statuses {
		if _, err := fmt.Fprintf(s.w, "%s\t%s\n", st.Name, st.Status); err != nil {
			return err
		}
	}
	return nil
}

func (s *printSink) SendError(_ context.Context, detail string) error {
	_, err := fmt.Fprintf(s.w, "error: %s\n", detail)
	return err
}
