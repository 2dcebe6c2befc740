package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hyChia88/Text2Cal/internal/engine"
	"github.com/hyChia88/Text2Cal/internal/store"
)

// Server is the text2cal HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over the given database and engine.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
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

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/logs", s.handleAddLog)
		r.Get("/logs", s.handleListLogs)
		r.Get("/logs/{logID}", s.handleGetLog)
		r.Put("/logs/{logID}", s.handleUpdateLog)
		r.Delete("/logs/{logID}", s.handleDeleteLog)

		r.Put("/logs/{logID}/weight", s.handleSetWeight)
		r.Delete("/logs/{logID}/weight", s.handleClearWeight)
		r.Post("/weights/reset", s.handleResetWeights)

		r.Post("/search", s.handleSearch)
		r.Get("/suggestion", s.handleSuggestion)
		r.Get("/suggestions", s.handleHistory)
		r.Get("/insights", s.handleInsights)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}
	entries, _ := s.db.CountLogs()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"version":    s.version,
		"uptime":     time.Since(s.started).Seconds(),
		"db":         dbOK,
		"db_path":    s.db.Path,
		"entries":    entries,
		"generation": s.engine.Generation(),
	})
}
