// Package http exposes a relay over HTTP: websocket endpoints for Hosts and
// Clients plus a few read-only JSON endpoints for operators.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/trysourcetool/sourcetool"
	"github.com/trysourcetool/sourcetool/internal/logging"
	"github.com/trysourcetool/sourcetool/pkg/adapters/websocket"
	"github.com/trysourcetool/sourcetool/pkg/relay"
)

// Server routes HTTP requests to a relay.
type Server struct {
	Relay    *relay.Server
	Upgrader *websocket.Upgrader
	Metrics  http.Handler

	logger *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithLogger configures a logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts handler at /metrics.
func WithMetrics(handler http.Handler) Option {
	return func(s *Server) {
		s.Metrics = handler
	}
}

// WithUpgrader replaces the websocket upgrader.
func WithUpgrader(u *websocket.Upgrader) Option {
	return func(s *Server) {
		s.Upgrader = u
	}
}

// NewHandler creates the HTTP handler for a relay.
func NewHandler(rel *relay.Server, opts ...Option) http.Handler {
	server := &Server{
		Relay:    rel,
		Upgrader: websocket.NewUpgrader(websocket.DefaultSettings(), nil),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/ws/host", server.ServeHost)
	r.Get("/ws/client", server.ServeClient)
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/sessions", server.GetSessions)
	r.Get("/sessions/{sessionID}", server.GetSession)
	r.Get("/hosts", server.GetHosts)
	if server.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", server.Metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHost upgrades GET /ws/host and runs the Host side of the relay until the socket closes.
func (s *Server) ServeHost(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrader.Upgrade(w, r)
	if err != nil {
		s.logger.Warn("Host upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	if err := s.Relay.ServeHost(r.Context(), conn); err != nil {
		s.logger.Info("Host connection ended", "remote", r.RemoteAddr, "err", err)
	}
}

// ServeClient upgrades GET /ws/client and runs the Client side of the relay.
func (s *Server) ServeClient(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrader.Upgrade(w, r)
	if err != nil {
		s.logger.Warn("Client upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	if err := s.Relay.ServeClient(r.Context(), conn); err != nil {
		s.logger.Info("Client connection ended", "remote", r.RemoteAddr, "err", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	reg := s.Relay.Registry()
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"app":      "sourcetool-relay",
		"version":  strings.TrimSpace(sourcetool.Version),
		"hosts":    len(reg.Hosts()),
		"sessions": len(reg.Sessions()),
	})
}

// GetHosts lists the connected Hosts and their pages.
func (s *Server) GetHosts(w http.ResponseWriter, r *http.Request) {
	hosts := s.Relay.Registry().Hosts()
	if hosts == nil {
		hosts = []relay.HostInfo{}
	}
	writeJSON(w, s.logger, http.StatusOK, hosts)
}

// GetSessions lists live sessions.
func (s *Server) GetSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.Relay.Registry().Sessions()
	if sessions == nil {
		sessions = []relay.SessionInfo{}
	}
	writeJSON(w, s.logger, http.StatusOK, sessions)
}

// GetSession describes one live session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	info, ok := s.Relay.Registry().Session(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}
