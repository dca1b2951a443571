// Package serve exposes the dashboard and session archive over HTTP,
// with a websocket stream for live narration events.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/templetwo/breakthrough/internal/adaptive"
	"github.com/templetwo/breakthrough/internal/archive"
	"github.com/templetwo/breakthrough/internal/narrate"
)

// Server wires the adaptive controller, session archive and narration
// broadcaster into an HTTP API.
type Server struct {
	controller  *adaptive.Controller
	store       *archive.Store
	broadcaster *narrate.Broadcaster
	logger      *slog.Logger
}

// NewServer builds a server. The store and broadcaster may be nil; the
// corresponding endpoints then report unavailability.
func NewServer(controller *adaptive.Controller, store *archive.Store, broadcaster *narrate.Broadcaster, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		controller:  controller,
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/dashboard", s.handleDashboard)
	r.Get("/api/sessions", s.handleListSessions)
	r.Get("/api/sessions/{id}", s.handleGetSession)
	r.Get("/api/improvements", s.handleListImprovements)
	r.Get("/ws", s.handleWS)

	return r
}

// ListenAndServe serves the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("serve: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.controller == nil {
		s.writeError(w, http.StatusServiceUnavailable, "controller unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, s.controller.GetDashboardState())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "archive unavailable")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sessions, err := s.store.ListSessions(limit)
	if err != nil {
		s.logger.Error("list sessions failed", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "archive query failed")
		return
	}
	if sessions == nil {
		sessions = []archive.SessionSummary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "archive unavailable")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := s.store.GetSession(id)
	if errors.Is(err, archive.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("get session failed", slog.Int64("id", id), slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "archive query failed")
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleListImprovements(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "archive unavailable")
		return
	}

	events, err := s.store.ListImprovementEvents(50)
	if err != nil {
		s.logger.Error("list improvements failed", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "archive query failed")
		return
	}
	if events == nil {
		events = []adaptive.ImprovementEvent{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"improvements": events,
		"count":        len(events),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
