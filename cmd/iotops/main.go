package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/internal/logging"
)

// envOr returns the environment variable key, or def when it is empty.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	var logFile *logging.LogFile
	cmd := &cobra.Command{
		Use:     "iotops",
		Short:   "Deploy the Mosquitto and mqtt2prometheus IoT stack",
		Long:    "iotops converges a Mosquitto broker and mqtt2prometheus exporters on Kubernetes or on a Docker host reached over SSH.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", envOr("IOTOPS_CONFIG", iotcfg.DefaultPath), "Path to the desired-state document (env IOTOPS_CONFIG)")
	pf.String("state-url", envOr("IOTOPS_STATE_URL", defaultStateURL), "State store URL (sqlite:<path> | memory:) (env IOTOPS_STATE_URL)")
	pf.String("backend", envOr("IOTOPS_BACKEND", "auto"), "Backend (auto|kubernetes|legacy) (env IOTOPS_BACKEND)")
	pf.String("stack", envOr("IOTOPS_STACK", "iot"), "Stack name scoping stored state (env IOTOPS_STACK)")
	pf.String("assets-dir", envOr("IOTOPS_ASSETS_DIR", "assets"), "Directory of asset bundles for the legacy backend (env IOTOPS_ASSETS_DIR)")
	pf.String("kubeconfig", os.Getenv("KUBECONFIG"), "Path to kubeconfig (env KUBECONFIG)")
	pf.String("log-format", envOr("IOTOPS_LOG_FORMAT", "human"), "Log format (human|text|json) (env IOTOPS_LOG_FORMAT)")
	pf.String("log-level", envOr("IOTOPS_LOG_LEVEL", "INFO"), "Log level (DEBUG|INFO|WARN|ERROR) (env IOTOPS_LOG_LEVEL)")
	pf.String("log-output", envOr("IOTOPS_LOG_OUTPUT", ""), "Log destination (- for stderr | none | auto | path) (env IOTOPS_LOG_OUTPUT)")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		format, _ := c.Flags().GetString("log-format")
		level, _ := c.Flags().GetString("log-level")
		output, _ := c.Flags().GetString("log-output")
		l, lf, err := logging.Setup(&logging.LogConfig{
			Format:        format,
			Level:         level,
			Output:        output,
			Dir:           logging.DefaultDir(),
			RetentionDays: 7,
		})
		if err != nil {
			return err
		}
		logFile = lf
		l = l.With("runId", uuid.NewString()[:8])
		c.SetContext(logging.WithLogger(c.Context(), l))
		return nil
	}
	cmd.PersistentPostRunE = func(c *cobra.Command, _ []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdConfig())
	cmd.AddCommand(newCmdDeploy())
	cmd.AddCommand(newCmdPlan())
	cmd.AddCommand(newCmdDestroy())
	cmd.AddCommand(newCmdOutputs())
	cmd.AddCommand(newCmdRuns())
	cmd.AddCommand(newCmdState())
	cmd.AddCommand(newCmdRender())
	cmd.AddCommand(newCmdBroker())
	return cmd
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	executed, err := root.ExecuteC()
	if err != nil {
		ctx := root.Context()
		if executed != nil {
			ctx = executed.Context()
		}
		logging.FromContext(ctx).Errorf(ctx, "Failed: %s", err)
		os.Exit(exitCode(err))
	}
}
