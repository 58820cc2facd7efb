// Package server exposes the service over a REST API and a live editor
// websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BOSS-tools/boplot/internal/codec"
	"github.com/BOSS-tools/boplot/internal/config"
	"github.com/BOSS-tools/boplot/internal/dispatcher"
	"github.com/BOSS-tools/boplot/internal/editor"
	"github.com/BOSS-tools/boplot/internal/service"
	"github.com/BOSS-tools/boplot/internal/storage"
	"github.com/BOSS-tools/boplot/internal/typedata"
	"github.com/BOSS-tools/boplot/pkg/core"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Server serves the REST routes and the /ws endpoint.
type Server struct {
	svc      *service.Service
	d        *dispatcher.Dispatcher
	cfg      config.ServerConfig
	log      *slog.Logger
	upgrader websocket.Upgrader
	clients  atomic.Int64
}

// New returns a Server. d must already carry the service handlers.
func New(svc *service.Service, d *dispatcher.Dispatcher, cfg config.ServerConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{svc: svc, d: d, cfg: cfg, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Clients returns the number of connected websocket sessions.
func (s *Server) Clients() int64 {
	return s.clients.Load()
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthcheck", s.handleHealth)
	mux.HandleFunc("POST /api/layout", s.handleLayout)
	mux.HandleFunc("POST /api/encode", s.handleEncode)
	mux.HandleFunc("GET /api/decode", s.handleDecode)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("POST /api/share", s.handleShare)
	mux.HandleFunc("GET /api/share", s.handleRecent)
	mux.HandleFunc("GET /api/share/{id}", s.handleLoad)
	mux.HandleFunc("POST /api/solve", s.handleSolve)
	mux.HandleFunc("GET /api/types", s.handleTypes)
	mux.HandleFunc("GET /api/schema", s.handleSchema)
	mux.HandleFunc("GET /ws", s.handleWS)

	return s.withCORS(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "address", s.cfg.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.cfg.AllowOrigin == "*" || origin == s.cfg.AllowOrigin
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AllowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, codec.ErrFormat),
		errors.Is(err, codec.ErrInvalidEntry),
		errors.Is(err, typedata.ErrUnknownType),
		errors.Is(err, editor.ErrRaceConflict),
		errors.Is(err, editor.ErrInvalidEdit),
		errors.Is(err, core.ErrInvalidAction),
		errors.Is(err, service.ErrInvalidPayload),
		errors.Is(err, service.ErrUnknownRace),
		errors.Is(err, dispatcher.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoStorage), errors.Is(err, service.ErrNoEngine):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are out already; the client most likely went away.
		s.log.Debug("Error writing response", "status", status, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidPayload, err)
	}
	return nil
}
