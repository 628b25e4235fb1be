package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "fleetsim.v1.FleetService"

const (
	FleetService_Deploy_FullMethodName       = "/fleetsim.v1.FleetService/Deploy"
	FleetService_DeployFleet_FullMethodName  = "/fleetsim.v1.FleetService/DeployFleet"
	FleetService_Lookup_FullMethodName       = "/fleetsim.v1.FleetService/Lookup"
	FleetService_SendCommand_FullMethodName  = "/fleetsim.v1.FleetService/SendCommand"
	FleetService_GetTelemetry_FullMethodName = "/fleetsim.v1.FleetService/GetTelemetry"
	FleetService_GetStats_FullMethodName     = "/fleetsim.v1.FleetService/GetStats"
	FleetService_StopDevice_FullMethodName   = "/fleetsim.v1.FleetService/StopDevice"
	FleetService_Counts_FullMethodName       = "/fleetsim.v1.FleetService/Counts"
)

// FleetServiceClient is the client API for FleetService.
type FleetServiceClient interface {
	Deploy(ctx context.Context, in *DeployRequest, opts ...grpc.CallOption) (*DeployResponse, error)
	DeployFleet(ctx context.Context, in *DeployFleetRequest, opts ...grpc.CallOption) (*DeployFleetResponse, error)
	Lookup(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*LookupResponse, error)
	SendCommand(ctx context.Context, in *CommandRequest, opts ...grpc.CallOption) (*CommandResponse, error)
	GetTelemetry(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*Report, error)
	GetStats(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*Stats, error)
	StopDevice(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*Empty, error)
	Counts(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Counts, error)
}

type fleetServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewFleetServiceClient(cc grpc.ClientConnInterface) FleetServiceClient {
	return &fleetServiceClient{cc}
}

// invoke sends in as a Struct and decodes the Struct reply into a new Resp.
func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	req, err := Encode(in)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	reply := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, req, reply, opts...); err != nil {
		return nil, err
	}
	out := new(Resp)
	if err := Decode(reply, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (c *fleetServiceClient) Deploy(ctx context.Context, in *DeployRequest, opts ...grpc.CallOption) (*DeployResponse, error) {
	return invoke[DeployResponse](ctx, c.cc, FleetService_Deploy_FullMethodName, in, opts...)
}

func (c *fleetServiceClient) DeployFleet(ctx context.Context, in *DeployFleetRequest, opts ...grpc.CallOption) (*DeployFleetResponse, error) {
	return invoke[DeployFleetResponse](ctx, c.cc, FleetService_DeployFleet_FullMethodName, in, opts...)
}

func (c *fleetServiceClient) Lookup(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	return invoke[LookupResponse](ctx, c.cc, FleetService_Lookup_FullMethodName, in, opts...)
}

func (c *fleetServiceClient) SendCommand(ctx context.Context, in *CommandRequest, opts ...grpc.CallOption) (*CommandResponse, error) {
	return invoke[CommandResponse](ctx, c.cc, FleetService_SendCommand_FullMethodName, in, opts...)
}

func (c *fleetServiceClient) GetTelemetry(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*Report, error) {
	return invoke[Report](ctx, c.cc, FleetService_GetTelemetry_FullMethodName, in, opts...)
}

func (c *fleetServiceClient) GetStats(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*Stats, error) {
	return invoke[Stats](ctx, c.cc, FleetService_GetStats_FullMethodName, in, opts...)
}

func (c *fleetServiceClient) StopDevice(ctx context.Context, in *DeviceRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, FleetService_StopDevice_FullMethodName, in, opts...)
}

func (c *fleetServiceClient) Counts(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Counts, error) {
	return invoke[Counts](ctx, c.cc, FleetService_Counts_FullMethodName, in, opts...)
}

// FleetServiceServer is the server API for FleetService. Implementations
// must embed UnimplementedFleetServiceServer for forward compatibility.
type FleetServiceServer interface {
	Deploy(context.Context, *DeployRequest) (*DeployResponse, error)
	DeployFleet(context.Context, *DeployFleetRequest) (*DeployFleetResponse, error)
	Lookup(context.Context, *DeviceRequest) (*LookupResponse, error)
	SendCommand(context.Context, *CommandRequest) (*CommandResponse, error)
	GetTelemetry(context.Context, *DeviceRequest) (*Report, error)
	GetStats(context.Context, *DeviceRequest) (*Stats, error)
	StopDevice(context.Context, *DeviceRequest) (*Empty, error)
	Counts(context.Context, *Empty) (*Counts, error)
	mustEmbedUnimplementedFleetServiceServer()
}

type UnimplementedFleetServiceServer struct{}

func (UnimplementedFleetServiceServer) Deploy(context.Context, *DeployRequest) (*DeployResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Deploy not implemented")
}
func (UnimplementedFleetServiceServer) DeployFleet(context.Context, *DeployFleetRequest) (*DeployFleetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeployFleet not implemented")
}
func (UnimplementedFleetServiceServer) Lookup(context.Context, *DeviceRequest) (*LookupResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Lookup not implemented")
}
func (UnimplementedFleetServiceServer) SendCommand(context.Context, *CommandRequest) (*CommandResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendCommand not implemented")
}
func (UnimplementedFleetServiceServer) GetTelemetry(context.Context, *DeviceRequest) (*Report, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTelemetry not implemented")
}
func (UnimplementedFleetServiceServer) GetStats(context.Context, *DeviceRequest) (*Stats, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStats not implemented")
}
func (UnimplementedFleetServiceServer) StopDevice(context.Context, *DeviceRequest) (*Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method StopDevice not implemented")
}
func (UnimplementedFleetServiceServer) Counts(context.Context, *Empty) (*Counts, error) {
	return nil, status.Error(codes.Unimplemented, "method Counts not implemented")
}
func (UnimplementedFleetServiceServer) mustEmbedUnimplementedFleetServiceServer() {}

func RegisterFleetServiceServer(s grpc.ServiceRegistrar, srv FleetServiceServer) {
	s.RegisterService(&FleetService_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc.MethodDesc handler
// working on Structs.
func unaryHandler[Req, Resp any](method string, call func(FleetServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req any) (any, error) {
			typed := new(Req)
			if err := Decode(req.(*structpb.Struct), typed); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			resp, err := call(srv.(FleetServiceServer), ctx, typed)
			if err != nil {
				return nil, err
			}
			out, err := Encode(resp)
			if err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
			return out, nil
		}

		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, handler)
	}
}

// FleetService_ServiceDesc is the grpc.ServiceDesc for FleetService.
var FleetService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FleetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deploy", Handler: unaryHandler(FleetService_Deploy_FullMethodName, FleetServiceServer.Deploy)},
		{MethodName: "DeployFleet", Handler: unaryHandler(FleetService_DeployFleet_FullMethodName, FleetServiceServer.DeployFleet)},
		{MethodName: "Lookup", Handler: unaryHandler(FleetService_Lookup_FullMethodName, FleetServiceServer.Lookup)},
		{MethodName: "SendCommand", Handler: unaryHandler(FleetService_SendCommand_FullMethodName, FleetServiceServer.SendCommand)},
		{MethodName: "GetTelemetry", Handler: unaryHandler(FleetService_GetTelemetry_FullMethodName, FleetServiceServer.GetTelemetry)},
		{MethodName: "GetStats", Handler: unaryHandler(FleetService_GetStats_FullMethodName, FleetServiceServer.GetStats)},
		{MethodName: "StopDevice", Handler: unaryHandler(FleetService_StopDevice_FullMethodName, FleetServiceServer.StopDevice)},
		{MethodName: "Counts", Handler: unaryHandler(FleetService_Counts_FullMethodName, FleetServiceServer.Counts)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fleetsim/v1/fleet.proto",
}
