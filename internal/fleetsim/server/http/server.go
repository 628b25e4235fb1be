package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fleetv1 "github.com/autopeer-io/fleetsim/api/fleet/v1"
	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/internal/fleet"
	"github.com/autopeer-io/fleetsim/internal/fleetsim/server/wire"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/internal/pkg/util"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ReadyFunc reports whether the process can serve traffic.
type ReadyFunc func() error

type Server struct {
	server    *http.Server
	options   *options.HttpOptions
	commander *fleet.Commander
	ready     ReadyFunc
	logger    log.Logger
}

func NewServer(opts *options.HttpOptions, commander *fleet.Commander, ready ReadyFunc, logger log.Logger) *Server {
	s := &Server{
		options:   opts,
		commander: commander,
		ready:     ready,
		logger:    logger.WithName("http"),
	}

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.routes(),
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	}
	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/counts", s.getCounts).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.deploy).Methods(http.MethodPost)
	api.HandleFunc("/fleet", s.deployFleet).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}", s.lookup).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.stop).Methods(http.MethodDelete)
	api.HandleFunc("/devices/{id}/telemetry", s.getTelemetry).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/stats", s.getStats).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}/commands", s.sendCommand).Methods(http.MethodPost)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("Starting HTTP Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) getCounts(w http.ResponseWriter, r *http.Request) {
	c, err := s.commander.Counts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wire.FromCounts(c))
}

func (s *Server) deploy(w http.ResponseWriter, r *http.Request) {
	var req fleetv1.DeployRequest
	if !s.decode(w, r, &req) {
		return
	}
	h, err := s.commander.Deploy(r.Context(), req.LogicModule, req.TelemetrySink, device.Options(req.Options))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, &fleetv1.DeployResponse{DeviceID: h.ID()})
}

func (s *Server) deployFleet(w http.ResponseWriter, r *http.Request) {
	var req fleetv1.DeployFleetRequest
	if !s.decode(w, r, &req) {
		return
	}
	results := s.commander.DeployFleet(r.Context(), wire.ToDeviceSpecs(req.Devices))
	s.writeJSON(w, http.StatusOK, wire.FromDeployResults(results))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	h, err := s.commander.Lookup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &fleetv1.LookupResponse{DeviceID: h.ID()})
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	if err := s.commander.Stop(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getTelemetry(w http.ResponseWriter, r *http.Request) {
	rep, err := s.commander.GetTelemetry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wire.FromReport(rep))
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.commander.GetStats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wire.FromStats(st))
}

func (s *Server) sendCommand(w http.ResponseWriter, r *http.Request) {
	var req fleetv1.CommandRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.DeviceID = mux.Vars(r)["id"]

	reply, err := s.commander.SendCommand(r.Context(), req.DeviceID, wire.ToCommand(&req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &fleetv1.CommandResponse{Reply: reply})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(err, "Failed to encode response")
	}
}

type errorResponse struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(err, "Request failed")
	}
	s.writeJSON(w, code, &errorResponse{Kind: string(util.KindOf(err)), Error: err.Error()})
}

// StatusCode maps fleet error kinds onto HTTP status codes.
func StatusCode(err error) int {
	if errors.Is(err, util.ErrAlreadyRegistered) {
		return http.StatusConflict
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	switch util.KindOf(err) {
	case util.KindNotFound:
		return http.StatusNotFound
	case util.KindCommand:
		return http.StatusBadRequest
	case util.KindConfiguration, util.KindInitialization, util.KindPlacement:
		return http.StatusUnprocessableEntity
	case util.KindTerminated:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
