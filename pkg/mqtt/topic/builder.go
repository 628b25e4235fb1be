package topic

import (
	"fmt"
	"strings"
)

// Topic segments shared by the simulator and anything listening to it.
const (
	// SuffixTelemetry carries device reports (simulator -> consumers).
	// Structure: {root}/telemetry/{deviceID}
	SuffixTelemetry = "telemetry"

	// SuffixCommand carries commands addressed to one device (operator -> simulator).
	// Structure: {root}/command/{deviceID}
	SuffixCommand = "command"

	// SuffixCommandAck carries the outcome of a command (simulator -> operator).
	// Structure: {root}/command/ack/{deviceID}
	SuffixCommandAck = "command/ack"

	// SuffixStatus carries the retained online/offline state of a simulator node.
	// Structure: {root}/status/{nodeID}
	SuffixStatus = "status"
)

// MQTT wildcards. MultiWildcard must be the last level of a filter.
const (
	Wildcard      = "+"
	MultiWildcard = "#"
)

// Payloads published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// TopicBuilder constructs topic strings under a common root.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "fleetsim/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: root}
}

func (b *TopicBuilder) Root() string {
	return b.root
}

// Telemetry returns the topic a device publishes its reports to.
func (b *TopicBuilder) Telemetry(deviceID string) string {
	return b.build(SuffixTelemetry, deviceID)
}

// TelemetryWildcard matches the reports of every device.
// Result: {root}/telemetry/+
func (b *TopicBuilder) TelemetryWildcard() string {
	return b.build(SuffixTelemetry, Wildcard)
}

// Command returns the topic used to send a command to deviceID.
func (b *TopicBuilder) Command(deviceID string) string {
	return b.build(SuffixCommand, deviceID)
}

// CommandWildcard is subscribed by the command ingress.
// Result: {root}/command/+
func (b *TopicBuilder) CommandWildcard() string {
	return b.build(SuffixCommand, Wildcard)
}

// CommandAck returns the topic the outcome of a command for deviceID is published to.
func (b *TopicBuilder) CommandAck(deviceID string) string {
	return b.build(SuffixCommandAck, deviceID)
}

// CommandAckWildcard matches every acknowledgement.
// Result: {root}/command/ack/+
func (b *TopicBuilder) CommandAckWildcard() string {
	return b.build(SuffixCommandAck, Wildcard)
}

// Status returns the topic carrying the liveness of nodeID. The offline
// payload is registered as the connection's will message.
func (b *TopicBuilder) Status(nodeID string) string {
	return b.build(SuffixStatus, nodeID)
}

// All matches every topic under root.
// Result: {root}/#
func (b *TopicBuilder) All() string {
	return b.root + "/" + MultiWildcard
}

// DeviceID extracts the last topic level, or "" if topic is not under suffix.
func (b *TopicBuilder) DeviceID(suffix, topic string) string {
	id, ok := strings.CutPrefix(topic, b.root+"/"+suffix+"/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// build constructs {root}/{suffix}/{identifier}.
func (b *TopicBuilder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
