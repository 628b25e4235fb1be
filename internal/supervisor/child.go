package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/autopeer-io/fleetsim/internal/actor"
	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
)

// child is the stable handle handed out for a placed id. It forwards every
// call to the current instance, so callers keep working across restarts.
type child struct {
	id      string
	policy  fleet.RestartPolicy
	factory fleet.Factory
	sup     *Local

	mu       sync.RWMutex
	current  fleet.Handle
	stopping bool
	restarts []time.Time
}

var _ fleet.Handle = (*child)(nil)

func (c *child) ID() string {
	return c.id
}

func (c *child) Telemetry(ctx context.Context) (*device.Report, error) {
	h, err := c.target()
	if err != nil {
		return nil, err
	}
	return h.Telemetry(ctx)
}

func (c *child) Stats(ctx context.Context) (actor.Stats, error) {
	h, err := c.target()
	if err != nil {
		return actor.Stats{}, err
	}
	return h.Stats(ctx)
}

func (c *child) Command(ctx context.Context, cmd device.Command) (any, error) {
	h, err := c.target()
	if err != nil {
		return nil, err
	}
	return h.Command(ctx, cmd)
}

// Stop is a normal exit: the child is unregistered and never restarted.
func (c *child) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stopping = true
	h := c.current
	c.mu.Unlock()

	c.sup.remove(c)
	if h == nil {
		return nil
	}
	return h.Stop(ctx)
}

func (c *child) target() (fleet.Handle, error) {
	h := c.handle()
	if h == nil {
		return nil, util.NewError(util.KindTerminated, c.id, nil)
	}
	return h, nil
}

func (c *child) handle() fleet.Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *child) alive() bool {
	h := c.handle()
	if h == nil {
		return false
	}
	if m, ok := h.(Monitored); ok {
		select {
		case <-m.Done():
			return false
		default:
		}
	}
	return true
}

func (c *child) isStopping() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopping
}

// replace installs a restarted instance unless the child is being stopped.
func (c *child) replace(h fleet.Handle) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopping {
		return false
	}
	c.current = h
	return true
}

// allowRestart records a restart at now if fewer than limit happened within window.
func (c *child) allowRestart(now time.Time, limit int, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.restarts[:0]
	for _, t := range c.restarts {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	c.restarts = kept

	if len(c.restarts) >= limit {
		return false
	}
	c.restarts = append(c.restarts, now)
	return true
}
