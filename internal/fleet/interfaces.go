package fleet

import (
	"context"

	"github.com/autopeer-io/fleetsim/internal/actor"
	"github.com/autopeer-io/fleetsim/internal/device"
)

// Handle addresses one running device actor.
type Handle interface {
	ID() string
	Telemetry(ctx context.Context) (*device.Report, error)
	Stats(ctx context.Context) (actor.Stats, error)
	Command(ctx context.Context, cmd device.Command) (any, error)
	Stop(ctx context.Context) error
}

var _ Handle = (*actor.Actor)(nil)

// Factory starts a new actor instance. The placement service calls it once
// per placement and again for every restart.
type Factory func() (Handle, error)

// RestartPolicy tells the placement service what to do when an actor exits.
type RestartPolicy string

const (
	// RestartPermanent always restarts.
	RestartPermanent RestartPolicy = "permanent"
	// RestartTransient restarts only after an abnormal exit.
	RestartTransient RestartPolicy = "transient"
	// RestartTemporary never restarts.
	RestartTemporary RestartPolicy = "temporary"
)

// Counts is a snapshot of the fleet size as seen by the registry.
type Counts struct {
	Specs       int `json:"specs"`
	Active      int `json:"active"`
	Supervisors int `json:"supervisors"`
	Workers     int `json:"workers"`
}

// Placement places actors under a unique id. A duplicate id must be rejected
// with an error matching util.ErrAlreadyRegistered.
type Placement interface {
	Place(ctx context.Context, id string, factory Factory, policy RestartPolicy) (Handle, error)
}

// Registry resolves ids to handles and reports fleet counts.
type Registry interface {
	Lookup(ctx context.Context, id string) (Handle, bool)
	Count(ctx context.Context) (Counts, error)
}
