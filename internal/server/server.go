// Package server is the demo backend: a chi HTTP server exposing the
// thread snapshot REST API and the per-thread event WebSocket that the
// TUI hydrates from and subscribes to.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runlight/threadview/internal/feed"
	"github.com/runlight/threadview/internal/tuilog"
)

// Config holds demo server settings.
type Config struct {
	Host  string
	Port  int
	Token string
	Quiet bool
}

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 7311

	// Hydration returns only the newest runs; older ones page in
	// through the history endpoint.
	defaultHydrationRuns = 50
	defaultHistoryRuns   = 20
)

// Server serves thread snapshots and streams events.
type Server struct {
	config Config
	store  *Store
	pubsub *ThreadPubSub
	router chi.Router
}

// New creates a server around a store.
func New(cfg Config, store *Store) *Server {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	s := &Server{
		config: cfg,
		store:  store,
		pubsub: NewThreadPubSub(),
	}
	s.router = s.setupRouter()
	return s
}

// Publish applies an event to the store and fans it out to stream
// subscribers.
func (s *Server) Publish(ev feed.Event) {
	s.store.Apply(ev)
	s.pubsub.Publish(ev)
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	if !s.config.Quiet {
		r.Use(middleware.Logger)
	}

	if s.config.Token != "" {
		tuilog.Log.Info("Server authentication enabled")
		r.Use(bearerAuth(s.config.Token))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/threads", s.handleListThreads)
		r.Get("/threads/{threadID}", s.handleGetThread)
		r.Get("/threads/{threadID}/history", s.handleThreadHistory)
		r.Get("/threads/{threadID}/events", s.handleThreadWS)
		r.Get("/health", s.handleHealth)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ListenAndServe starts the server and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler: s.router,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if s.config.Port == 0 {
		s.config.Port = ln.Addr().(*net.TCPAddr).Port
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	tuilog.Log.Info("Server running", "addr", srv.Addr)
	return srv.Serve(ln)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"threads": s.store.List()})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	snap, ok := s.store.Get(threadID)
	if !ok {
		hydrationRequestsTotal.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, "not_found", "No such thread")
		return
	}
	limit := defaultHydrationRuns
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if len(snap.Runs) > limit {
		snap.Runs = snap.Runs[len(snap.Runs)-limit:]
	}

	hydrationRequestsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, snap)
}

// handleThreadHistory pages backward through runs older than the
// client's oldest known run.
func (s *Server) handleThreadHistory(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	before := r.URL.Query().Get("before")
	if before == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "before is required")
		return
	}
	limit := defaultHistoryRuns
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs := s.store.History(threadID, before, limit)
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleThreadWS upgrades to WebSocket and streams events for one
// thread until the client disconnects.
func (s *Server) handleThreadWS(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "threadID is required")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		tuilog.Log.Error("WebSocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	ch, unsub := s.pubsub.Subscribe(threadID)
	defer unsub()

	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()
	tuilog.Log.Info("WebSocket client connected", "thread_id", threadID)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "subscription closed")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				tuilog.Log.Debug("WS write failed", "thread_id", threadID, "error", err)
				return
			}
		}
	}
}

// bearerAuth validates a bearer token with constant-time comparison.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/health" {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) < len(prefix) || auth[:len(prefix)] != prefix {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Missing or malformed Authorization header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err string, msg string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: msg})
}
