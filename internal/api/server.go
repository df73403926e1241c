// Package api exposes the validator's round state over HTTP for monitoring.
package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"Lingua/internal/logger"
	"Lingua/internal/state"
	"Lingua/internal/subnet"
	"Lingua/internal/validator"
)

// StatusProvider exposes round engine state for monitoring.
type StatusProvider interface {
	Status() validator.Status
	Weights() state.Weights
	Queue() []subnet.UID
}

// Server is the HTTP status server.
type Server struct {
	addr    string         // addr is the HTTP listen address
	status  StatusProvider // status provides round engine state
	metrics http.Handler   // metrics serves the prometheus registry, optional
	server  *http.Server   // server is the underlying HTTP server
}

// New creates a new status server. A nil metrics handler disables /metrics.
func New(addr string, status StatusProvider, metrics http.Handler) *Server {
	return &Server{
		addr:    addr,
		status:  status,
		metrics: metrics,
	}
}

// Handler returns the routed mux without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /weights", s.handleWeights)
	mux.HandleFunc("GET /queue", s.handleQueue)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("status api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status not available")
		return
	}

	writeJSON(w, http.StatusOK, s.status.Status())
}

// weightView is one running weight as served by GET /weights.
type weightView struct {
	UID    subnet.UID `json:"uid"`
	Key    string     `json:"key"`
	Weight float64    `json:"weight"`
}

// handleWeights handles GET /weights requests, sorted by uid.
func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status not available")
		return
	}

	running := s.status.Weights()
	out := make([]weightView, 0, len(running))

	for uid, e := range running {
		out = append(out, weightView{UID: uid, Key: e.Key, Weight: e.Weight})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}

		if n < len(out) {
			out = out[:n]
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// handleQueue handles GET /queue requests.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "status not available")
		return
	}

	q := s.status.Queue()
	if q == nil {
		q = []subnet.UID{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"length": len(q),
		"order":  q,
	})
}
