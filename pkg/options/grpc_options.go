package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*GrpcOptions)(nil)

// GrpcOptions configures the control-plane gRPC server.
type GrpcOptions struct {
	Network string `json:"network" mapstructure:"network"`
	Addr    string `json:"addr" mapstructure:"addr"`

	// Timeout caps every call on the server side. Zero leaves calls bounded
	// only by the client deadline.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRecvMsgSize bounds request size in bytes; large fleet manifests need more
	// than the 4MiB grpc default.
	MaxRecvMsgSize int `json:"max-recv-msg-size" mapstructure:"max-recv-msg-size"`
}

func NewGrpcOptions() *GrpcOptions {
	return &GrpcOptions{
		Network:        "tcp",
		Addr:           "0.0.0.0:9091",
		Timeout:        30 * time.Second,
		MaxRecvMsgSize: 16 << 20,
	}
}

func (o *GrpcOptions) Validate() []error {
	var errs []error

	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, fmt.Errorf("--grpc.addr: %w", err))
	}
	if o.Timeout < 0 {
		errs = append(errs, fmt.Errorf("--grpc.timeout must not be negative"))
	}
	if o.MaxRecvMsgSize <= 0 {
		errs = append(errs, fmt.Errorf("--grpc.max-recv-msg-size must be positive"))
	}

	return errs
}

func (o *GrpcOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Network, "grpc.network", o.Network, "Network of the gRPC listener.")
	fs.StringVar(&o.Addr, "grpc.addr", o.Addr, "Bind address of the gRPC control API.")
	fs.DurationVar(&o.Timeout, "grpc.timeout", o.Timeout, "Server-side deadline of each call; 0 disables it.")
	fs.IntVar(&o.MaxRecvMsgSize, "grpc.max-recv-msg-size", o.MaxRecvMsgSize, "Largest accepted request in bytes.")
}
