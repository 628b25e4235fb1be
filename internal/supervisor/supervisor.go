// Package supervisor is the in-process placement service and registry: a
// concurrent map of device ids to supervised children, each watched by a
// monitor goroutine that applies the child's restart policy.
package supervisor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

const (
	DefaultMaxRestarts   = 3
	DefaultRestartWindow = 5 * time.Second
)

// Monitored is implemented by handles whose termination can be observed.
// Err must be nil after a normal stop.
type Monitored interface {
	Done() <-chan struct{}
	Err() error
}

type Config struct {
	// MaxRestarts within RestartWindow before a child is given up on.
	MaxRestarts   int
	RestartWindow time.Duration

	Clock  clock.PassiveClock
	Logger log.Logger
}

// Local implements fleet.Placement and fleet.Registry inside one process.
type Local struct {
	cfg    Config
	logger log.Logger

	mu       sync.RWMutex
	children map[string]*child
	closed   bool

	wg sync.WaitGroup
}

var (
	_ fleet.Placement = (*Local)(nil)
	_ fleet.Registry  = (*Local)(nil)
)

func New(cfg Config) *Local {
	if cfg.MaxRestarts <= 0 {
		cfg.MaxRestarts = DefaultMaxRestarts
	}
	if cfg.RestartWindow <= 0 {
		cfg.RestartWindow = DefaultRestartWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Std()
	}

	return &Local{
		cfg:      cfg,
		logger:   cfg.Logger.WithName("supervisor"),
		children: make(map[string]*child),
	}
}

// Place reserves id, runs factory outside the lock and registers the result.
// A taken id fails with util.ErrAlreadyRegistered; a failing factory releases
// the reservation and its error is returned unchanged.
func (s *Local) Place(ctx context.Context, id string, factory fleet.Factory, policy fleet.RestartPolicy) (fleet.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, util.NewError(util.KindPlacement, id, err)
	}

	c := &child{id: id, policy: policy, factory: factory, sup: s}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.PlacementsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, util.Errorf(util.KindPlacement, id, "supervisor is shut down")
	}
	if _, ok := s.children[id]; ok {
		s.mu.Unlock()
		metrics.PlacementsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, util.NewError(util.KindPlacement, id, util.ErrAlreadyRegistered)
	}
	s.children[id] = c
	s.mu.Unlock()

	h, err := factory()
	if err != nil {
		s.remove(c)
		metrics.PlacementsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, err
	}

	// Shutdown may have run while the factory did. The monitor is counted
	// under s.mu so it is either refused here or waited for by Shutdown.
	_, monitored := h.(Monitored)
	s.mu.RLock()
	closed := s.closed
	if !closed && monitored {
		s.wg.Add(1)
	}
	s.mu.RUnlock()

	installed := false
	if !closed {
		c.mu.Lock()
		if !c.stopping {
			c.current = h
			installed = true
		}
		c.mu.Unlock()
	}

	if !installed {
		if !closed && monitored {
			s.wg.Done()
		}
		s.remove(c)
		_ = h.Stop(context.Background())
		metrics.PlacementsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, util.Errorf(util.KindPlacement, id, "supervisor is shut down")
	}

	metrics.PlacementsTotal.WithLabelValues(metrics.ResultSuccess).Inc()

	if monitored {
		go s.monitor(c, h)
	}
	return c, nil
}

// Lookup returns the child registered under id once it has a running instance.
func (s *Local) Lookup(_ context.Context, id string) (fleet.Handle, bool) {
	s.mu.RLock()
	c, ok := s.children[id]
	s.mu.RUnlock()

	if !ok || c.handle() == nil {
		return nil, false
	}
	return c, true
}

// Count reports children (specs and workers) and how many have a live instance.
func (s *Local) Count(_ context.Context) (fleet.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := fleet.Counts{Specs: len(s.children), Workers: len(s.children)}
	for _, c := range s.children {
		if c.alive() {
			counts.Active++
		}
	}
	return counts, nil
}

// Shutdown stops every child and waits for the monitors to exit. No placement
// is accepted afterwards.
func (s *Local) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	children := make([]*child, 0, len(s.children))
	for _, c := range s.children {
		children = append(children, c)
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, c := range children {
		g.Go(func() error {
			return c.Stop(ctx)
		})
	}
	err := g.Wait()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	s.logger.Info("Supervisor shut down", "children", len(children))
	return err
}

func (s *Local) remove(c *child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.children[c.id]; ok && cur == c {
		delete(s.children, c.id)
	}
}

func (s *Local) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// monitor waits for each instance of c to exit and restarts it while the
// policy and the restart budget allow.
func (s *Local) monitor(c *child, h fleet.Handle) {
	defer s.wg.Done()

	logger := s.logger.WithValues("deviceID", c.id, "policy", string(c.policy))
	for {
		m := h.(Monitored)
		<-m.Done()
		exitErr := m.Err()

		if !s.shouldRestart(c, exitErr) {
			s.remove(c)
			if exitErr != nil {
				logger.Error(exitErr, "Device exited, not restarting")
			}
			return
		}

		logger.Warn("Restarting device", "reason", errString(exitErr))
		next, err := c.factory()
		if err != nil {
			logger.Error(err, "Device restart failed")
			s.remove(c)
			return
		}
		metrics.RestartsTotal.WithLabelValues(string(c.policy)).Inc()

		if !c.replace(next) {
			// Stopped while the new instance was starting.
			_ = next.Stop(context.Background())
			return
		}
		if _, ok := next.(Monitored); !ok {
			return
		}
		h = next
	}
}

func (s *Local) shouldRestart(c *child, exitErr error) bool {
	if c.isStopping() || s.isClosed() {
		return false
	}

	switch c.policy {
	case fleet.RestartPermanent:
	case fleet.RestartTransient:
		if exitErr == nil {
			return false
		}
	default:
		return false
	}

	return c.allowRestart(s.cfg.Clock.Now(), s.cfg.MaxRestarts, s.cfg.RestartWindow)
}

func errString(err error) string {
	if err == nil {
		return "normal exit"
	}
	return err.Error()
}
