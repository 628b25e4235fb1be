package options

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagSet(o *ServerOptions) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	for _, f := range o.Flags().FlagSets {
		fs.AddFlagSet(f)
	}
	return fs
}

func TestDefaultsValidate(t *testing.T) {
	o := NewServerOptions()
	require.NoError(t, o.Load(flagSet(o), ""))
	assert.NoError(t, o.Validate())
	assert.Equal(t, time.Second, o.FleetOptions.DefaultInterval)
	assert.Equal(t, []string{"stdout"}, o.Log.OutputPaths)
	assert.False(t, o.MqttOptions.Enabled())
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fleet:
  node-id: from-file
  default-interval: 250ms
mqtt:
  broker: mqtt://broker:1883
kafka:
  brokers: [k1:9092, k2:9092]
`), 0o600))

	o := NewServerOptions()
	fs := flagSet(o)
	require.NoError(t, fs.Parse([]string{"--fleet.node-id=from-flag"}))
	require.NoError(t, o.Load(fs, path))

	assert.Equal(t, "from-flag", o.FleetOptions.NodeID)
	assert.Equal(t, 250*time.Millisecond, o.FleetOptions.DefaultInterval)
	assert.Equal(t, "mqtt://broker:1883", o.MqttOptions.Broker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, o.KafkaOptions.Brokers)
	assert.Equal(t, "fleetsim/v1", o.MqttOptions.TopicRoot, "defaults survive a partial file")
	assert.NoError(t, o.Validate())
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("FLEETSIM_FLEET_DEFAULT_SINK", "nats")

	o := NewServerOptions()
	require.NoError(t, o.Load(flagSet(o), ""))
	assert.Equal(t, "nats", o.FleetOptions.DefaultSink)
}

func TestValidateAggregates(t *testing.T) {
	o := NewServerOptions()
	o.FleetOptions.DefaultInterval = 0
	o.Log.Level = "loud"

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default-interval")
	assert.Contains(t, err.Error(), "log.level")
}

func TestClientOptions(t *testing.T) {
	o := NewClientOptions()
	assert.NoError(t, o.Validate())
	o.Output = "yaml"
	assert.Error(t, o.Validate())
}
