package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"0.0.0.0:9091", false},
		{":8080", false},
		{"localhost:9092", false},
		{"kafka-0.kafka:9092", false},
		{"[::1]:1883", false},
		{"localhost", true},
		{"host:notaport", true},
		{"host:70000", true},
		{"bad host:80", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDisabledSinksValidate(t *testing.T) {
	for _, o := range []IOptions{NewMqttOptions(), NewKafkaOptions(), NewNatsOptions(), NewPostgresOptions(), NewS3Options()} {
		assert.Empty(t, o.Validate(), "%T", o)
	}
}

func TestEnabledSinksValidate(t *testing.T) {
	k := NewKafkaOptions()
	k.Brokers = []string{"localhost:9092", "broken"}
	assert.Len(t, k.Validate(), 1)

	p := NewPostgresOptions()
	p.DSN = "postgres://localhost/fleetsim"
	p.Table = "telemetry; drop table x"
	assert.Len(t, p.Validate(), 1)

	m := NewMqttOptions()
	m.Broker = "tcp://localhost:1883"
	m.QoS = 3
	assert.Len(t, m.Validate(), 1)

	s := NewS3Options()
	s.Endpoint = "minio:9000"
	s.AccessKeyID = "only-half"
	assert.Len(t, s.Validate(), 1)
}

func TestFleetOptionsFlags(t *testing.T) {
	o := NewFleetOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--fleet.default-interval=250ms",
		"--fleet.node-id=node-a",
		"--fleet.watch-manifest",
	}))

	assert.Equal(t, 250*time.Millisecond, o.DefaultInterval)
	assert.Equal(t, "node-a", o.NodeID)

	errs := o.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "--fleet.manifest")
}

func TestServerOptionsValidate(t *testing.T) {
	g := NewGrpcOptions()
	assert.Empty(t, g.Validate())
	g.Addr = "nowhere"
	g.MaxRecvMsgSize = 0
	assert.Len(t, g.Validate(), 2)

	h := NewHttpOptions()
	assert.Empty(t, h.Validate())
	h.ShutdownTimeout = 0
	assert.Len(t, h.Validate(), 1)
}
