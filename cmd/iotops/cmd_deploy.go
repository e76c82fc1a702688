package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/usecase/deploy"
)

func newCmdDeploy() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Converge the stack to the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			backend, err := backendFlag(cmd)
			if err != nil {
				return err
			}
			uc, err := buildDeployUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "deploy", flagString(cmd, "stack"))
			defer func() { cleanup(err) }()

			out, err := uc.Deploy(ctx, &deploy.DeployInput{
				Config:    cfg,
				Stack:     flagString(cmd, "stack"),
				Backend:   backend,
				AssetsDir: flagString(cmd, "assets-dir"),
				DryRun:    dryRun,
			})
			if out != nil {
				printResult(cmd.OutOrStdout(), out)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan only; do not contact the backend")
	return cmd
}

func newCmdPlan() *cobra.Command {
	var manifest bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the actions a deploy would take",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "plan", flagString(cmd, "stack"))
			defer func() { cleanup(err) }()

			if manifest {
				m, err := deploy.Manifest(cfg)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), m)
				return err
			}
			backend, err := backendFlag(cmd)
			if err != nil {
				return err
			}
			uc, err := buildDeployUseCase(cmd)
			if err != nil {
				return err
			}
			out, err := uc.Deploy(ctx, &deploy.DeployInput{
				Config:    cfg,
				Stack:     flagString(cmd, "stack"),
				Backend:   backend,
				AssetsDir: flagString(cmd, "assets-dir"),
				DryRun:    true,
			})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&manifest, "manifest", false, "Print the Kubernetes objects as YAML (secrets masked)")
	return cmd
}

func newCmdDestroy() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every resource recorded for the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			backend, err := backendFlag(cmd)
			if err != nil {
				return err
			}
			uc, err := buildDeployUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(cmd.Context(), "destroy", flagString(cmd, "stack"))
			defer func() { cleanup(err) }()

			out, err := uc.Destroy(ctx, &deploy.DestroyInput{
				Config:  cfg,
				Stack:   flagString(cmd, "stack"),
				Backend: backend,
				DryRun:  dryRun,
			})
			if out != nil {
				printResult(cmd.OutOrStdout(), out)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List deletions without performing them")
	return cmd
}

func printResult(w io.Writer, out *deploy.DeployOutput) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "STACK\t%s\t(%s)\n", out.Stack, out.Backend)
	for _, s := range out.Steps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Action, s.ID, s.Kind)
	}
	tw.Flush()
	printOutputs(w, out.Outputs)
}

func printOutputs(w io.Writer, outputs map[string]string) {
	if len(outputs) == 0 {
		return
	}
	names := make([]string, 0, len(outputs))
	for k := range outputs {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Outputs:")
	for _, k := range names {
		fmt.Fprintf(w, "  %s = %s\n", k, outputs[k])
	}
}

func stackInput(cmd *cobra.Command) (*deploy.StackInput, error) {
	backend, err := backendFlag(cmd)
	if err != nil {
		return nil, err
	}
	in := &deploy.StackInput{Stack: flagString(cmd, "stack"), Backend: backend}
	if backend == model.BackendAuto {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		in.Config = cfg
	}
	return in, nil
}
