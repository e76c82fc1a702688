package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yaegashi/iotops/adapters/mqttprobe"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/usecase/broker"
)

func newCmdBroker() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Inspect the deployed broker",
	}
	cmd.AddCommand(newCmdBrokerPing())
	return cmd
}

// newCmdBrokerPing connects to the broker with the exporter credentials.
func newCmdBrokerPing() *cobra.Command {
	var (
		host     string
		insecure bool
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Connect to the broker and disconnect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
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
			secrets, err := cfg.ResolveSecrets()
			if err != nil {
				return err
			}
			opts := mqttprobe.Options{
				Username: secrets.ExporterUsername,
				Password: secrets.ExporterPassword,
				Insecure: insecure,
				Timeout:  timeout,
			}
			switch backend {
			case model.BackendKubernetes:
				opts.Host, opts.Port, opts.TLS = cfg.Mosquitto.Hostname, broker.MQTTSPort, true
			default:
				if cfg.Target != nil {
					opts.Host = cfg.Target.Host
				}
				opts.Port = broker.MQTTPort
			}
			if host != "" {
				opts.Host = host
			}

			ctx, cleanup := withCmdRunLogger(cmd.Context(), "broker.ping", opts.BrokerURL())
			defer func() { cleanup(err) }()
			res, err := mqttprobe.Ping(ctx, opts)
			if err != nil {
				return fmt.Errorf("%w: %w", model.ErrUpstream, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok broker=%s latency=%s\n", res.Broker, res.Latency.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Override the broker host")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Connect timeout")
	return cmd
}
