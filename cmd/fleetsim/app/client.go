package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	fleetv1 "github.com/autopeer-io/fleetsim/api/fleet/v1"
	"github.com/autopeer-io/fleetsim/cmd/fleetsim/app/options"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/fleetsim"
	grpcmiddleware "github.com/autopeer-io/fleetsim/internal/pkg/middleware/grpc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// client is shared by the subcommands talking to a running simulator.
type client struct {
	opts *options.ClientOptions
	out  io.Writer
	dial func(opts *options.ClientOptions) (fleetv1.FleetServiceClient, func() error, error)
}

func dialGRPC(opts *options.ClientOptions) (fleetv1.FleetServiceClient, func() error, error) {
	conn, err := grpc.NewClient(opts.Server,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcmiddleware.UnaryTimeout(opts.Timeout)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", opts.Server, err)
	}
	return fleetv1.NewFleetServiceClient(conn), conn.Close, nil
}

// run dials, calls fn and prints its result.
func (c *client) run(ctx context.Context, fn func(context.Context, fleetv1.FleetServiceClient) (any, error)) error {
	if err := c.opts.Validate(); err != nil {
		return err
	}
	fc, closeFn, err := c.dial(c.opts)
	if err != nil {
		return err
	}
	defer closeFn() // nolint: errcheck

	result, err := fn(ctx, fc)
	if err != nil {
		return err
	}
	return c.print(result)
}

func (c *client) print(v any) error {
	if c.opts.Output == options.OutputJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true

	switch r := v.(type) {
	case *fleetv1.DeployResponse:
		table.AddRow("DEVICE ID")
		table.AddRow(r.DeviceID)
	case *fleetv1.LookupResponse:
		table.AddRow("DEVICE ID", "STATUS")
		table.AddRow(r.DeviceID, "running")
	case *fleetv1.DeployFleetResponse:
		table.AddRow("DEVICE ID", "RESULT")
		for _, res := range r.Results {
			result := "deployed"
			if res.Error != "" {
				result = res.Error
			}
			table.AddRow(res.DeviceID, result)
		}
	case *fleetv1.CommandResponse:
		table.AddRow("REPLY")
		table.AddRow(r.Reply)
	case *fleetv1.Report:
		table.AddRow("DEVICE ID", "TYPE", "TIMESTAMP", "FIELD", "VALUE")
		for i, k := range sortedKeys(r.Data) {
			if i == 0 {
				table.AddRow(r.DeviceID, r.DeviceType, time.UnixMilli(r.Timestamp).Format(time.RFC3339Nano), k, r.Data[k])
				continue
			}
			table.AddRow("", "", "", k, r.Data[k])
		}
	case *fleetv1.Stats:
		table.AddRow("STARTED", "COMMANDS", "REPORTS", "BYTES")
		table.AddRow(r.StartupTime.Format(time.RFC3339), r.CommandCount, r.TelemetryCount, r.TelemetryBytes)
	case *fleetv1.Counts:
		table.AddRow("SPECS", "ACTIVE", "SUPERVISORS", "WORKERS")
		table.AddRow(r.Specs, r.Active, r.Supervisors, r.Workers)
	case *fleetv1.Empty:
		return nil
	default:
		return fmt.Errorf("cannot print %T", v)
	}

	_, err := fmt.Fprintln(c.out, table)
	return err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseValue reads a command line value the way YAML would: 10 is a number,
// true a bool, anything unparsable stays a string.
func parseValue(s string) any {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	return v
}

func parseOptions(pairs []string) (map[string]any, error) {
	opts := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("option %q is not key=value", p)
		}
		opts[k] = parseValue(v)
	}
	return opts, nil
}

func newClientCommands(ctx context.Context) []*cobra.Command {
	c := &client{opts: options.NewClientOptions(), out: os.Stdout, dial: dialGRPC}
	return c.commands(ctx)
}

func (c *client) commands(ctx context.Context) []*cobra.Command {
	deviceRequest := func(args []string) *fleetv1.DeviceRequest {
		return &fleetv1.DeviceRequest{DeviceID: args[0]}
	}

	var (
		logic, sink, id, interval string
		optionPairs               []string
	)
	deploy := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy one device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := parseOptions(optionPairs)
			if err != nil {
				return err
			}
			if id != "" {
				opts[fleet.OptionDeviceID] = id
			}
			if interval != "" {
				opts[fleet.OptionScheduleInterval] = interval
			}
			return c.run(ctx, func(ctx context.Context, fc fleetv1.FleetServiceClient) (any, error) {
				return fc.Deploy(ctx, &fleetv1.DeployRequest{LogicModule: logic, TelemetrySink: sink, Options: opts})
			})
		},
	}
	deploy.Flags().StringVar(&logic, "logic", "", "Logic module (default: the server default).")
	deploy.Flags().StringVar(&sink, "sink", "", "Telemetry sink (default: the server default).")
	deploy.Flags().StringVar(&id, "id", "", "Device id (default: generated).")
	deploy.Flags().StringVar(&interval, "interval", "", "Tick interval, e.g. 500ms.")
	deploy.Flags().StringArrayVar(&optionPairs, "option", nil, "Logic option as key=value; repeatable.")

	var manifestPath string
	deployFleet := &cobra.Command{
		Use:   "deploy-fleet",
		Short: "Deploy every device listed in a manifest file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := fleetsim.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			req := &fleetv1.DeployFleetRequest{Devices: make([]fleetv1.DeviceSpec, 0, len(specs))}
			for _, s := range specs {
				req.Devices = append(req.Devices, fleetv1.DeviceSpec{
					DeviceID:      s.DeviceID,
					LogicModule:   s.LogicModule,
					TelemetrySink: s.TelemetrySink,
					Options:       s.Options,
				})
			}
			return c.run(ctx, func(ctx context.Context, fc fleetv1.FleetServiceClient) (any, error) {
				return fc.DeployFleet(ctx, req)
			})
		},
	}
	deployFleet.Flags().StringVarP(&manifestPath, "file", "f", "", "Manifest file (YAML).")
	_ = deployFleet.MarkFlagRequired("file")

	lookup := &cobra.Command{
		Use:   "lookup DEVICE_ID",
		Short: "Check that a device is running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(ctx, func(ctx context.Context, fc fleetv1.FleetServiceClient) (any, error) {
				return fc.Lookup(ctx, deviceRequest(args))
			})
		},
	}

	command := &cobra.Command{
		Use:   "command DEVICE_ID NAME [ARG...]",
		Short: "Send a command to a device",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &fleetv1.CommandRequest{DeviceID: args[0], Command: args[1]}
			for _, a := range args[2:] {
				req.Args = append(req.Args, parseValue(a))
			}
			return c.run(ctx, func(ctx context.Context, fc fleetv1.FleetServiceClient) (any, error) {
				return fc.SendCommand(ctx, req)
			})
		},
	}

	telemetry := &cobra.Command{
		Use:   "telemetry DEVICE_ID",
		Short: "Show a fresh telemetry report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(ctx, func(ctx context.Context, fc fleetv1.FleetServiceClient) (any, error) {
				return fc.GetTelemetry(ctx, deviceRequest(args))
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats DEVICE_ID",
		Short: "Show device statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(ctx, func(ctx context.Context, fc fleetv1.FleetServiceClient) (any, error) {
				return fc.GetStats(ctx, deviceRequest(args))
			})
		},
	}

	stop := &cobra.Command{
		Use:   "stop DEVICE_ID",
		Short: "Stop a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(ctx, func(ctx context.Context, fc fleetv1.FleetServiceClient) (any, error) {
				return fc.StopDevice(ctx, deviceRequest(args))
			})
		},
	}

	counts := &cobra.Command{
		Use:   "counts",
		Short: "Show fleet counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(ctx, func(ctx context.Context, fc fleetv1.FleetServiceClient) (any, error) {
				return fc.Counts(ctx, &fleetv1.Empty{})
			})
		},
	}

	cmds := []*cobra.Command{deploy, deployFleet, lookup, command, telemetry, stats, stop, counts}
	for _, cmd := range cmds {
		c.opts.AddFlags(cmd.Flags())
	}
	return cmds
}
