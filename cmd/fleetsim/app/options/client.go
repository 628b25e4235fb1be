package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// ClientOptions configure the CLI subcommands talking to a running simulator.
type ClientOptions struct {
	Server  string
	Timeout time.Duration
	Output  string
}

func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		Server:  "127.0.0.1:9091",
		Timeout: 10 * time.Second,
		Output:  OutputTable,
	}
}

func (o *ClientOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Server, "server", o.Server, "Address of the simulator gRPC endpoint.")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Deadline for each request.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output format: table or json.")
}

func (o *ClientOptions) Validate() error {
	if o.Output != OutputTable && o.Output != OutputJSON {
		return fmt.Errorf("--output must be %q or %q, got %q", OutputTable, OutputJSON, o.Output)
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	return nil
}
