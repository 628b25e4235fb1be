// Package sink holds the telemetry sinks a device can be deployed with. Every
// sink is shared by all devices that name it, so Publish must be safe for
// concurrent use. Sinks never retry; a failed publish fails the tick.
package sink
