package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	fleetv1 "github.com/autopeer-io/fleetsim/api/fleet/v1"
	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/fleetsim/server/wire"
	grpcmiddleware "github.com/autopeer-io/fleetsim/internal/pkg/middleware/grpc"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

// Server exposes the Commander as fleetsim.v1.FleetService.
type Server struct {
	fleetv1.UnimplementedFleetServiceServer

	server    *grpc.Server
	options   *options.GrpcOptions
	commander *fleet.Commander
	logger    log.Logger
}

func NewServer(opts *options.GrpcOptions, commander *fleet.Commander, logger log.Logger) *Server {
	logger = logger.WithName("grpc")
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(opts.MaxRecvMsgSize),
		grpc.ChainUnaryInterceptor(
			grpcmiddleware.UnaryServerLogging(logger),
			grpcmiddleware.UnaryServerTimeout(opts.Timeout),
		),
	)
	srv := &Server{
		server:    s,
		options:   opts,
		commander: commander,
		logger:    logger,
	}
	fleetv1.RegisterFleetServiceServer(s, srv)
	return srv
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.Info("Starting gRPC Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.server.GracefulStop()
		return nil
	}
}

func (s *Server) Deploy(ctx context.Context, req *fleetv1.DeployRequest) (*fleetv1.DeployResponse, error) {
	h, err := s.commander.Deploy(ctx, req.LogicModule, req.TelemetrySink, device.Options(req.Options))
	if err != nil {
		return nil, toStatus(err)
	}
	return &fleetv1.DeployResponse{DeviceID: h.ID()}, nil
}

func (s *Server) DeployFleet(ctx context.Context, req *fleetv1.DeployFleetRequest) (*fleetv1.DeployFleetResponse, error) {
	return wire.FromDeployResults(s.commander.DeployFleet(ctx, wire.ToDeviceSpecs(req.Devices))), nil
}

func (s *Server) Lookup(ctx context.Context, req *fleetv1.DeviceRequest) (*fleetv1.LookupResponse, error) {
	h, err := s.commander.Lookup(ctx, req.DeviceID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &fleetv1.LookupResponse{DeviceID: h.ID()}, nil
}

func (s *Server) SendCommand(ctx context.Context, req *fleetv1.CommandRequest) (*fleetv1.CommandResponse, error) {
	reply, err := s.commander.SendCommand(ctx, req.DeviceID, wire.ToCommand(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return &fleetv1.CommandResponse{Reply: reply}, nil
}

func (s *Server) GetTelemetry(ctx context.Context, req *fleetv1.DeviceRequest) (*fleetv1.Report, error) {
	r, err := s.commander.GetTelemetry(ctx, req.DeviceID)
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.FromReport(r), nil
}

func (s *Server) GetStats(ctx context.Context, req *fleetv1.DeviceRequest) (*fleetv1.Stats, error) {
	st, err := s.commander.GetStats(ctx, req.DeviceID)
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.FromStats(st), nil
}

func (s *Server) StopDevice(ctx context.Context, req *fleetv1.DeviceRequest) (*fleetv1.Empty, error) {
	if err := s.commander.Stop(ctx, req.DeviceID); err != nil {
		return nil, toStatus(err)
	}
	return &fleetv1.Empty{}, nil
}

func (s *Server) Counts(ctx context.Context, _ *fleetv1.Empty) (*fleetv1.Counts, error) {
	c, err := s.commander.Counts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return wire.FromCounts(c), nil
}
