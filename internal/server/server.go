// Package server exposes a download manager over HTTP.
//
// Routes:
//
//	GET  /api/jobs        list job snapshots
//	GET  /api/jobs/{id}   one job
//	POST /api/jobs        submit {"url": ..., "title": ...}
//	GET  /api/config      current settings
//	PUT  /api/config      live reconfiguration
//	GET  /api/events      websocket event stream
//	GET  /metrics         Prometheus metrics
//	GET  /healthz         liveness
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bowenkfan/multi-dl/internal/config"
	"github.com/bowenkfan/multi-dl/internal/download"
	"github.com/bowenkfan/multi-dl/internal/model"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultAddr is the listen address used when none is given.
const DefaultAddr = "127.0.0.1:8080"

const (
	clientBuffer   = 256
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	shutdownPeriod = 10 * time.Second
)

// Manager is the part of download.Manager the server needs.
type Manager interface {
	Submit(source, title string) (*model.Job, error)
	Jobs() []*model.Job
	Job(id string) (*model.Job, bool)
	Settings() config.Settings
	Stats() download.Stats
	UpdateConfiguration(u download.ConfigUpdate) error
	Subscribe(fn func(model.Event)) (unsubscribe func())
}

// Server serves the HTTP API.
type Server struct {
	mgr      Manager
	addr     string
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a server for mgr listening on addr.
func New(mgr Manager, addr string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mgr:    mgr,
		addr:   addr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mux: http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("POST /api/jobs", s.handleSubmit)
	s.mux.HandleFunc("GET /api/config", s.handleGetConfig)
	s.mux.HandleFunc("PUT /api/config", s.handleUpdateConfig)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type submitRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type configRequest struct {
	WorkerCount       *int    `json:"worker_count"`
	DownloadDirectory *string `json:"download_directory"`
	WorkDirectory     *string `json:"work_directory"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.mgr.Jobs()
	snaps := make([]model.JobSnapshot, 0, len(jobs))
	for _, job := range jobs {
		snaps = append(snaps, job.Snapshot())
	}
	s.writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.mgr.Job(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	job, err := s.mgr.Submit(req.URL, req.Title)
	switch {
	case errors.Is(err, download.ErrInvalidSource):
		s.writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, download.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Location", "/api/jobs/"+job.ID)
	s.writeJSON(w, http.StatusCreated, job.Snapshot())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.mgr.Settings())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	err := s.mgr.UpdateConfiguration(download.ConfigUpdate{
		WorkerCount:       req.WorkerCount,
		DownloadDirectory: req.DownloadDirectory,
		WorkDirectory:     req.WorkDirectory,
	})
	switch {
	case errors.Is(err, download.ErrInvalidConfiguration):
		s.writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.mgr.Settings())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.mgr.Stats())
}

// EventMessage is one frame of the /api/events stream.
type EventMessage struct {
	JobID   string `json:"job_id"`
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// NewEventMessage converts ev to its wire form.
func NewEventMessage(ev model.Event) EventMessage {
	msg := EventMessage{JobID: ev.JobID(), Kind: ev.Kind().String()}

	switch e := ev.(type) {
	case model.JobAdded:
		msg.Payload = e.Job.Snapshot()
	case model.StatusChanged:
		msg.Payload = map[string]any{"status": e.Status, "message": e.Message}
	case model.ProgressChanged:
		msg.Payload = map[string]any{"percent": e.Percent}
	case model.SpeedChanged:
		msg.Payload = map[string]any{"bytes_per_sec": e.BytesPerSec, "text": e.Text}
	case model.EtaChanged:
		msg.Payload = map[string]any{"seconds": e.Seconds, "text": e.Text}
	}
	return msg
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	out := make(chan EventMessage, clientBuffer)
	var dropped atomic.Int64
	unsubscribe := s.mgr.Subscribe(func(ev model.Event) {
		select {
		case out <- NewEventMessage(ev):
		default:
			// Never block the worker that produced the event.
			dropped.Add(1)
		}
	})
	defer func() {
		unsubscribe()
		if n := dropped.Load(); n > 0 {
			s.logger.Warn("slow event client dropped events", "remote", r.RemoteAddr, "dropped", n)
		}
	}()

	s.logger.Debug("event client connected", "remote", r.RemoteAddr)

	// The read loop only exists to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("event client write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			s.logger.Debug("event client disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
