package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newCmdConfig returns commands that read and check the document.
func newCmdConfig() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and validate the document",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the document for the selected backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			requested, err := backendFlag(cmd)
			if err != nil {
				return err
			}
			backend, err := cfg.SelectBackend(requested)
			if err != nil {
				return err
			}
			if err := cfg.Validate(backend); err != nil {
				return err
			}
			if _, err := cfg.ResolveSecrets(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok backend=%s instances=%d\n", backend, len(cfg.Instances()))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the parsed document (secret values masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}
