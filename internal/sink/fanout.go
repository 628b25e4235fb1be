package sink

import (
	"context"
	"io"
	"sort"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/fleetsim/internal/device"
)

// Fanout publishes every report to all of its sinks, in name order. The
// publish fails if any sink fails; the others still receive the report.
type Fanout struct {
	names []string
	sinks map[string]device.Sink
}

var _ device.Sink = (*Fanout)(nil)

func NewFanout(sinks map[string]device.Sink) *Fanout {
	f := &Fanout{sinks: make(map[string]device.Sink, len(sinks))}
	for name, s := range sinks {
		f.names = append(f.names, name)
		f.sinks[name] = s
	}
	sort.Strings(f.names)
	return f
}

func (f *Fanout) Publish(ctx context.Context, r *device.Report) error {
	var errs []error
	for _, name := range f.names {
		if err := f.sinks[name].Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

// CloseAll closes every sink in sinks that holds resources.
func CloseAll(sinks map[string]device.Sink) error {
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return utilerrors.NewAggregate(errs)
}
