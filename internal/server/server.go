package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/knowledge-engine/ke/internal/active"
	"github.com/knowledge-engine/ke/internal/engine"
	"github.com/knowledge-engine/ke/internal/store"
)

// Server is the knowledge engine HTTP API: graph and context reads for the
// visualization frontend, navigation (traversal) writes, and a WebSocket
// push channel that re-broadcasts the graph after each navigation.
type Server struct {
	db          *store.DB
	ctx         *active.Context
	engine      *engine.Engine
	hub         *hub
	router      chi.Router
	workspaceID string
	version     string
	started     time.Time
}

// New creates a new Server over the given store, context, and engine.
func New(db *store.DB, ctx *active.Context, eng *engine.Engine, workspaceID, version string) *Server {
	s := &Server{
		db:          db,
		ctx:         ctx,
		engine:      eng,
		hub:         newHub(),
		workspaceID: workspaceID,
		version:     version,
		started:     time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/graph", s.handleGraph)
		r.Post("/navigate", s.handleNavigate)
		r.Get("/node/*", s.handleNode)
		r.Get("/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      s.version,
		"uptime":       time.Since(s.started).Seconds(),
		"db":           dbOK,
		"db_path":      s.db.Path,
		"workspace_id": s.workspaceID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
