package app

import (
	"context"
	"flag"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/component-base/cli/globalflag"

	"github.com/autopeer-io/fleetsim/cmd/fleetsim/app/options"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

const (
	commandName = "fleetsim"
	commandDesc = `fleetsim runs a fleet of simulated devices. Every device is an
independent actor that updates its state on a schedule and publishes
telemetry to a sink (console, MQTT, Kafka, NATS, S3 or Postgres). Devices are
deployed and commanded over gRPC, HTTP or MQTT.`
)

// NewFleetsimCommand returns the root command. ctx is cancelled on SIGINT/SIGTERM.
func NewFleetsimCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:           commandName,
		Short:         "Simulate a fleet of telemetry-producing devices",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCommand(ctx))
	cmd.AddCommand(newClientCommands(ctx)...)
	return cmd
}

func newRunCommand(ctx context.Context) *cobra.Command {
	opts := options.NewServerOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch the fleet simulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Load(cmd.Flags(), configFile); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			log.Init(opts.Log)
			defer log.Sync() // nolint: errcheck

			cfg, err := opts.Config()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			server, err := cfg.NewFleetServer(ctx)
			if err != nil {
				log.Error(err, "failed to create fleet server")
				return err
			}

			return server.Run(ctx)
		},
	}

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	fs := cmd.Flags()
	fs.StringVarP(&configFile, "config", "c", "", "Read configuration from the specified file (yaml, json or toml).")
	namedfs := opts.Flags()
	globalflag.AddGlobalFlags(namedfs.FlagSet("global"), cmd.Name())
	for _, f := range namedfs.FlagSets {
		fs.AddFlagSet(f)
	}

	return cmd
}
