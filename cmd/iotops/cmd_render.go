package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/render"
)

func newCmdRender() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print generated configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "broker",
		Short: "Print mosquitto.conf of the orchestrated broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), render.MosquittoConfig())
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "passwords",
		Short: "Print the broker password file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), render.PasswordFile(cfg.Mosquitto.Passwords))
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "exporter <instance>",
		Short: "Print config.yaml of an exporter instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			for _, in := range cfg.Instances() {
				if in.Name != args[0] {
					continue
				}
				out, err := render.ExporterConfig(cfg.Mosquitto.Hostname, in)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return model.NewConfigError("mqtt2prometheus.instances", "no instance named %q", args[0])
		},
	})
	return cmd
}
