// Package server exposes a running simulation over HTTP: a websocket event
// feed, JSON views of the world and the latest tick, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/habitat/internal/core/events/bus"
	"github.com/zeusync/habitat/internal/core/observability/log"
)

type Config struct {
	Addr       string
	MaxClients int
	// SendBuffer is the number of frames queued per client before frames are dropped.
	SendBuffer int
}

// WorldView describes the static map so a viewer can draw it once.
type WorldView struct {
	Topology string   `json:"topology"`
	CellSize float64  `json:"cell_size"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Rows     []string `json:"rows"`
}

type HTTPServer struct {
	config   Config
	source   Source
	observer *Observer
	logger   log.Log
	mux      *http.ServeMux

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

func NewHTTPServer(config Config, source Source, events bus.EventBus, logger log.Log) (*HTTPServer, error) {
	if source == nil {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = log.NewNop()
	}

	observer := NewObserver(source, logger, config.MaxClients, config.SendBuffer)
	if events != nil {
		if err := observer.Attach(events); err != nil {
			return nil, err
		}
	}

	s := &HTTPServer{
		config:   config,
		source:   source,
		observer: observer,
		logger:   logger.Named("http"),
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/ws", observer.handleWebSocket)
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/world", s.handleWorld)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s, nil
}

func (s *HTTPServer) Observer() *Observer { return s.observer }

// Addr reports the bound address once Start succeeded.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Start binds the listener and serves in the background.
func (s *HTTPServer) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", log.Error(err))
		}
	}(s.server)

	s.logger.Info("Observer server listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Stop disconnects observers and shuts the HTTP server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return ErrServerNotRunning
	}
	s.observer.Close()
	return srv.Shutdown(ctx)
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *HTTPServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.source.Snapshot())
}

func (s *HTTPServer) handleWorld(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	world := s.source.Config().World
	width, height := world.Size()
	s.writeJSON(w, WorldView{
		Topology: world.Topology,
		CellSize: world.CellSize,
		Width:    width,
		Height:   height,
		Rows:     world.Rows(),
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", log.Error(err))
	}
}
