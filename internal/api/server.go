// Package api exposes the HTTP surface: latest and historical frames, recent
// alert events, the mutable thresholds, live websocket feeds and metrics.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codeberg.org/halcyon/robomon/internal/errors"
	"codeberg.org/halcyon/robomon/internal/eventlog"
	"codeberg.org/halcyon/robomon/internal/logger"
	"codeberg.org/halcyon/robomon/internal/metric"
	"codeberg.org/halcyon/robomon/internal/settings"
	"codeberg.org/halcyon/robomon/internal/state"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// noData is the body served before a stream has produced its first frame.
var noData = map[string]string{"status": "no data yet"}

type Server struct {
	state    *state.Publisher
	settings *settings.Store
	events   *eventlog.Log
	metrics  *metric.Metrics

	srv *http.Server
}

func NewServer(addr string, st *state.Publisher, cfg *settings.Store, events *eventlog.Log, metrics *metric.Metrics) *Server {
	s := &Server{
		state:    st,
		settings: cfg,
		events:   events,
		metrics:  metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/frames/latest", s.handleLatestThermal)
	r.Get("/frames/history", s.handleHistory)
	r.Get("/torque/latest", s.handleLatestTorque)
	r.Get("/errors", s.handleErrors)
	r.Get("/settings/thermal", s.handleGetSettings)
	r.Post("/settings/thermal", s.handleSetSettings)
	r.Get("/ws", s.handleThermalSocket)
	r.Get("/ws/torque", s.handleTorqueSocket)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Handler exposes the routed handler, for serving through another listener.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start binds the HTTP listener and serves in the background. Serve errors
// other than a clean shutdown are reported on errCh.
func (s *Server) Start(errCh chan<- error) error {
	errFactory := errors.New()

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errFactory.Wrap(ErrServe, err)
	}

	logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server started")

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- errFactory.Wrap(ErrServe, err)
		}
	}()

	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.New().Wrap(ErrShutdown, err)
	}

	return nil
}

func (s *Server) handleLatestThermal(w http.ResponseWriter, r *http.Request) {
	f, ok := s.state.LatestThermal()
	if !ok {
		writeJSON(w, http.StatusOK, noData)
		return
	}

	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.History())
}

func (s *Server) handleLatestTorque(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.state.LatestTorque()
	if !ok {
		writeJSON(w, http.StatusOK, noData)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.events.Recent())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	updated, err := s.settings.Apply(doc)
	if err != nil {
		logger.Warn().Err(err).Msg("Rejected settings update")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	logger.Info().
		Float64("threshold", updated.ThermalThresholdC).
		Float64("warning", updated.ThermalWarningC).
		Float64("critical", updated.ThermalCriticalC).
		Msg("Thermal settings updated")

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug().Err(err).Msg("Failed to write response body")
	}
}
