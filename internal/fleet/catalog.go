package fleet

import (
	"fmt"
	"sort"
	"sync"

	"github.com/autopeer-io/fleetsim/internal/device"
)

// Catalog maps the names used in deployment requests to logic modules and sinks.
// Logic modules keep no state of their own, so one instance serves every device.
type Catalog struct {
	mu     sync.RWMutex
	logics map[string]device.Logic
	sinks  map[string]device.Sink
}

func NewCatalog() *Catalog {
	return &Catalog{
		logics: make(map[string]device.Logic),
		sinks:  make(map[string]device.Sink),
	}
}

// RegisterLogic adds a logic module. Registering a name twice is an error.
func (c *Catalog) RegisterLogic(name string, l device.Logic) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.logics[name]; ok {
		return fmt.Errorf("logic module %q already registered", name)
	}
	c.logics[name] = l
	return nil
}

// RegisterSink adds a telemetry sink. Registering a name twice is an error.
func (c *Catalog) RegisterSink(name string, s device.Sink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sinks[name]; ok {
		return fmt.Errorf("telemetry sink %q already registered", name)
	}
	c.sinks[name] = s
	return nil
}

func (c *Catalog) Logic(name string) (device.Logic, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.logics[name]
	return l, ok
}

func (c *Catalog) Sink(name string) (device.Sink, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sinks[name]
	return s, ok
}

// Sinks returns a copy of the registered sinks keyed by name.
func (c *Catalog) Sinks() map[string]device.Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]device.Sink, len(c.sinks))
	for name, s := range c.sinks {
		out[name] = s
	}
	return out
}

func (c *Catalog) LogicNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.logics)
}

func (c *Catalog) SinkNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.sinks)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
