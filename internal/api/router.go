package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-grow/internal/action"
	"github.com/nerrad567/gray-logic-grow/internal/actionlog"
	"github.com/nerrad567/gray-logic-grow/internal/command"
)

const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/schedule", s.handleSchedule)
		r.Get("/plan", s.handlePlan)
		r.Get("/stats", s.handleStats)
		r.Get("/entities", s.handleEntities)
		r.Route("/logs", func(r chi.Router) {
			r.Get("/", s.handleLogs)
			r.Get("/{entity}", s.handleLogs)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})

	return r
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth reports "degraded" with 503 when any component check fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.version}
	status := http.StatusOK

	if len(s.health) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		names := make([]string, 0, len(s.health))
		for name := range s.health {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Components = make(map[string]string, len(names))
		for _, name := range names {
			if err := s.health[name].HealthCheck(ctx); err != nil {
				resp.Components[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}
	}

	writeJSON(w, status, resp)
}

func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	pending := s.scheduler.Pending()
	if pending == nil {
		pending = []action.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(pending),
		"entries": pending,
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, _ *http.Request) {
	if s.planner == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "planner not running")
		return
	}
	at, day := s.planner.NextPlan()
	writeJSON(w, http.StatusOK, map[string]any{
		"last":     s.planner.LastPlan(),
		"next_at":  at,
		"next_day": day.Format(time.DateOnly),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "dispatcher not running")
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

func (s *Server) handleEntities(w http.ResponseWriter, _ *http.Request) {
	ids := []string{}
	if s.entities != nil {
		ids = append(ids, s.entities.IDs()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(ids),
		"entities": ids,
	})
}

// handleLogs serves GET /logs and GET /logs/{entity}.
// Query parameters: command, since (RFC 3339), limit.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	filter := actionlog.Filter{EntityID: chi.URLParam(r, "entity")}
	q := r.URL.Query()

	if v := q.Get("command"); v != "" {
		tok, err := command.Parse(v)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		filter.Command = tok.String()
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	records, err := s.log.List(r.Context(), filter)
	if errors.Is(err, actionlog.ErrInvalidEntity) {
		writeBadRequest(w, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("listing action log failed", "error", err)
		writeInternalError(w, "failed to read action log")
		return
	}
	if records == nil {
		records = []actionlog.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}
