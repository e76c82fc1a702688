package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newCmdOutputs() *cobra.Command {
	return &cobra.Command{
		Use:   "outputs",
		Short: "Print the outputs recorded by the last deploy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := stackInput(cmd)
			if err != nil {
				return err
			}
			uc, err := buildDeployUseCase(cmd)
			if err != nil {
				return err
			}
			outs, err := uc.Outputs(cmd.Context(), in)
			if err != nil {
				return err
			}
			printOutputs(cmd.OutOrStdout(), outs)
			return nil
		},
	}
}

func newCmdRuns() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recorded deploy and destroy runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := stackInput(cmd)
			if err != nil {
				return err
			}
			uc, err := buildDeployUseCase(cmd)
			if err != nil {
				return err
			}
			runs, err := uc.Runs(cmd.Context(), in)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tOPERATION\tSTATUS\tCHANGES\tSTARTED\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.Operation, r.Status, r.Changes, r.StartedAt.Format(time.RFC3339), r.Error)
			}
			return tw.Flush()
		},
	}
}

func newCmdState() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "List the resources recorded for the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := stackInput(cmd)
			if err != nil {
				return err
			}
			uc, err := buildDeployUseCase(cmd)
			if err != nil {
				return err
			}
			states, err := uc.State(cmd.Context(), in)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ORDER\tID\tKIND\tDIGEST\tUPDATED")
			for _, s := range states {
				digest := s.Digest
				if len(digest) > 12 {
					digest = digest[:12]
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.Order, s.ID, s.Kind, digest, s.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}
