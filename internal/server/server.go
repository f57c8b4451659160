// Package server exposes the task lifecycle engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"skladtrack/internal/engine"
	"skladtrack/store"
)

// Server is the skladtrack HTTP API server.
type Server struct {
	httpServer *http.Server
	engine     *engine.Engine
	archiver   *engine.Archiver
	store      *store.SQLiteStore
	clock      engine.Clock
}

// New wires the API routes. The store backs the read paths (listing, history,
// receptions, filters, stats); all task mutations go through the engine.
func New(addr string, eng *engine.Engine, archiver *engine.Archiver, st *store.SQLiteStore, clock engine.Clock) *Server {
	s := &Server{
		engine:   eng,
		archiver: archiver,
		store:    st,
		clock:    clock,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Get("/stats", s.handleStats)
			r.Put("/bulk-update", s.handleBulkUpdate)
			r.Delete("/bulk-delete", s.handleBulkDelete)
			r.Post("/archive", s.handleArchive)
			r.Post("/import", s.handleImport)
			r.Get("/{id}", s.handleGetTask)
			r.Put("/{id}", s.handleUpdateTask)
			r.Delete("/{id}", s.handleDeleteTask)
			r.Get("/{id}/history", s.handleTaskHistory)
			r.Post("/{id}/revert/{historyID}", s.handleRevert)
		})

		r.Get("/receptions", s.handleListReceptions)
		r.Post("/receptions", s.handleCreateReception)

		r.Get("/filters", s.handleListFilters)
		r.Post("/filters", s.handleCreateFilter)
		r.Delete("/filters/{id}", s.handleDeleteFilter)
	})

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler exposes the routed handler, used by httptest in server tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and blocks until the server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("skladtrack API listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestLogger tags each request with a uuid and logs method, path, status
// and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

// writeError maps the engine/store error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrBadRequest):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Detail: err.Error()})
}

func badRequest(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Detail: detail})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
