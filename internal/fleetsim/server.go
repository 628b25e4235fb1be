// Package fleetsim assembles the simulator process: sinks, supervisor,
// commander and the gRPC, HTTP and MQTT servers in front of them.
package fleetsim

import (
	"context"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/fleetsim/server"
	"github.com/autopeer-io/fleetsim/internal/sink"
	"github.com/autopeer-io/fleetsim/internal/supervisor"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type FleetServer struct {
	serverManager *server.Manager
	supervisor    *supervisor.Local
	commander     *fleet.Commander
	sinks         map[string]device.Sink
	logger        log.Logger
}

// Commander returns the commander the servers route to.
func (s *FleetServer) Commander() *fleet.Commander {
	return s.commander
}

// Run blocks until ctx is cancelled or a server fails, then stops every
// device before the sinks are closed.
func (s *FleetServer) Run(ctx context.Context) error {
	s.logger.Info("Starting fleet simulator")
	runErr := s.serverManager.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := []error{runErr}
	errs = append(errs, s.supervisor.Shutdown(shutdownCtx))
	errs = append(errs, sink.CloseAll(s.sinks))

	s.logger.Info("Fleet simulator stopped")
	_ = s.logger.Sync()
	return utilerrors.NewAggregate(errs)
}
