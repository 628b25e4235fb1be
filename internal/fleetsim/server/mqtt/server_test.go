package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	fleetv1 "github.com/autopeer-io/fleetsim/api/fleet/v1"
	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/pkg/fleettest"
	"github.com/autopeer-io/fleetsim/internal/supervisor"
	"github.com/autopeer-io/fleetsim/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

type message struct {
	topic   string
	retain  bool
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	handlers     map[string]pkgmqtt.MessageHandler
	published    []message
	disconnected bool
}

var _ pkgmqtt.Client = (*fakeClient)(nil)

func (f *fakeClient) Start(context.Context) error           { return nil }
func (f *fakeClient) AwaitConnection(context.Context) error { return nil }
func (f *fakeClient) Unsubscribe(context.Context, string) error {
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disconnected
}

func (f *fakeClient) Disconnect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeClient) Publish(_ context.Context, t string, _ int, retain bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message{topic: t, retain: retain, payload: payload})
	return nil
}

func (f *fakeClient) Subscribe(_ context.Context, t string, _ int, h pkgmqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string]pkgmqtt.MessageHandler)
	}
	f.handlers[t] = h
	return nil
}

func (f *fakeClient) handler(t string) pkgmqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[t]
}

func (f *fakeClient) last(t string) (message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.published) - 1; i >= 0; i-- {
		if f.published[i].topic == t {
			return f.published[i], true
		}
	}
	return message{}, false
}

func TestCommandIngress(t *testing.T) {
	f := fleettest.New(t)
	_, err := f.Commander.Deploy(context.Background(), "", "", device.Options{"device_id": "dev-1"})
	require.NoError(t, err)

	client := &fakeClient{}
	topics := topic.NewTopicBuilder("fleetsim/v1")
	srv := NewServer(Config{NodeID: "node1", QoS: 1, Commands: true}, client, topics, f.Commander, log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	// The online status is published once the subscription is in place.
	require.Eventually(t, func() bool {
		_, ok := client.last(topics.Status("node1"))
		return ok
	}, time.Second, time.Millisecond)
	require.NoError(t, srv.Ready())

	status, _ := client.last(topics.Status("node1"))
	assert.Equal(t, topic.StatusOnline, string(status.payload))
	assert.True(t, status.retain)

	handle := client.handler(topics.CommandWildcard())
	ackTopic := topics.CommandAck("dev-1")

	handle(ctx, topics.Command("dev-1"), []byte(`{"request_id":"r1","command":"set_max","args":[50]}`))
	msg, ok := client.last(ackTopic)
	require.True(t, ok)
	var ack fleetv1.CommandAck
	require.NoError(t, json.Unmarshal(msg.payload, &ack))
	assert.Equal(t, "r1", ack.RequestID)
	assert.Equal(t, 50.0, ack.Reply)
	assert.Empty(t, ack.Error)

	handle(ctx, topics.Command("dev-1"), []byte(`{"request_id":"r2","command":"launch"}`))
	msg, _ = client.last(ackTopic)
	require.NoError(t, json.Unmarshal(msg.payload, &ack))
	assert.Equal(t, "r2", ack.RequestID)
	assert.Equal(t, "Command", ack.Kind)
	assert.NotEmpty(t, ack.Error)

	handle(ctx, topics.Command("ghost"), []byte(`{"command":"reset_count"}`))
	msg, ok = client.last(topics.CommandAck("ghost"))
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(msg.payload, &ack))
	assert.Equal(t, "NotFound", ack.Kind)

	handle(ctx, topics.Command("dev-1"), []byte(`{`))
	msg, _ = client.last(ackTopic)
	assert.Contains(t, string(msg.payload), "malformed command")

	cancel()
	require.NoError(t, <-done)

	status, _ = client.last(topics.Status("node1"))
	assert.Equal(t, topic.StatusOffline, string(status.payload))
	assert.Error(t, srv.Ready())
}

func TestCommandsDisabled(t *testing.T) {
	f := fleettest.New(t)
	client := &fakeClient{}
	topics := topic.NewTopicBuilder("fleetsim/v1")
	srv := NewServer(Config{}, client, topics, f.Commander, log.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	cancel()
	require.NoError(t, <-done)

	assert.Nil(t, client.handler(topics.CommandWildcard()))
	_, ok := client.last(topics.Status(""))
	assert.False(t, ok, "no status without a node id")
}

// stallLogic blocks every command until release is closed.
type stallLogic struct {
	release chan struct{}
}

func (l stallLogic) Init(string, device.Options) (device.State, error) { return 0, nil }
func (l stallLogic) UpdateState(s device.State) (device.State, error) { return s, nil }

func (l stallLogic) ReportTelemetry(device.State) (*device.Report, error) {
	return &device.Report{}, nil
}

func (l stallLogic) HandleCommand(_ device.Command, s device.State) (*device.Reply, device.State, error) {
	<-l.release
	return nil, s, nil
}

func TestCommandDeadline(t *testing.T) {
	release := make(chan struct{})
	clk := testingclock.NewFakeClock(time.Unix(1_700_000_000, 0))

	catalog := fleet.NewCatalog()
	require.NoError(t, catalog.RegisterLogic("stall", stallLogic{release: release}))
	require.NoError(t, catalog.RegisterSink("console", device.SinkFunc(func(context.Context, *device.Report) error {
		return nil
	})))

	sup := supervisor.New(supervisor.Config{Clock: clk, Logger: log.NewNopLogger()})
	t.Cleanup(func() { _ = sup.Shutdown(context.Background()) })
	// Registered last so it runs first and unblocks the actor before shutdown.
	t.Cleanup(func() { close(release) })

	commander := fleet.NewCommander(fleet.Config{
		NodeID:       "node1",
		DefaultLogic: "stall",
		Clock:        clk,
		Logger:       log.NewNopLogger(),
	}, catalog, sup, sup)
	_, err := commander.Deploy(context.Background(), "", "", device.Options{"device_id": "dev-1"})
	require.NoError(t, err)

	client := &fakeClient{}
	topics := topic.NewTopicBuilder("fleetsim/v1")
	srv := NewServer(Config{QoS: 1, Commands: true, CommandTimeout: 50 * time.Millisecond}, client, topics, commander, log.NewNopLogger())

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		srv.handleCommand(context.Background(), topics.Command("dev-1"), []byte(`{"request_id":"r1","command":"anything"}`))
	}()

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("command handler did not honour its deadline")
	}

	msg, ok := client.last(topics.CommandAck("dev-1"))
	require.True(t, ok)
	var ack fleetv1.CommandAck
	require.NoError(t, json.Unmarshal(msg.payload, &ack))
	assert.Equal(t, "r1", ack.RequestID)
	assert.Equal(t, "Command", ack.Kind)
	assert.Contains(t, ack.Error, context.DeadlineExceeded.Error())
}

func TestDefaultCommandTimeout(t *testing.T) {
	f := fleettest.New(t)
	srv := NewServer(Config{}, &fakeClient{}, topic.NewTopicBuilder("fleetsim/v1"), f.Commander, log.NewNopLogger())
	assert.Equal(t, DefaultCommandTimeout, srv.cfg.CommandTimeout)
}
