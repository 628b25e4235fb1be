package fleet

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"k8s.io/utils/clock"
)

// IDGenerator builds device ids of the form <node>-<unixnano hex>-<counter hex>.
// The node part separates generators across the cluster; the counter keeps ids
// unique inside one process even when the clock stalls or goes backwards.
type IDGenerator struct {
	node    string
	clock   clock.PassiveClock
	counter atomic.Uint64
}

// NewIDGenerator returns a generator for node. An empty node gets a random one.
func NewIDGenerator(node string, c clock.PassiveClock) *IDGenerator {
	if node == "" {
		node = strings.SplitN(uuid.NewString(), "-", 2)[0]
	}
	if c == nil {
		c = clock.RealClock{}
	}
	return &IDGenerator{node: node, clock: c}
}

func (g *IDGenerator) Node() string {
	return g.node
}

func (g *IDGenerator) Next() string {
	n := g.counter.Add(1)
	ts := g.clock.Now().UnixNano()

	var b strings.Builder
	b.Grow(len(g.node) + 34)
	b.WriteString(g.node)
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(ts, 16))
	b.WriteByte('-')
	b.WriteString(strconv.FormatUint(n, 16))
	return b.String()
}
