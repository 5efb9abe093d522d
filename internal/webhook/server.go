// Package webhook exposes a small HTTP surface: a health check, an
// ad-hoc light-time lookup, and a read-only view of recorded events.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/user/celestialecho/internal/horizons"
	"github.com/user/celestialecho/internal/lighttime"
	"github.com/user/celestialecho/internal/types"
)

const timeLayout = "2006-01-02 15:04:05"

// LookupFunc runs one observer-table session for the given start time and
// target.
type LookupFunc func(ctx context.Context, startTime, target string) (string, error)

// Server handles webhook endpoints.
type Server struct {
	events types.EventStore
	lookup LookupFunc
	mux    *http.ServeMux
}

// NewServer creates a webhook Server over the given event store and
// lookup function.
func NewServer(events types.EventStore, lookup LookupFunc) *Server {
	s := &Server{
		events: events,
		lookup: lookup,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /lookup", s.handleLookup)
	s.mux.HandleFunc("GET /api/events", s.handleAPIEvents)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// lookupRequest is the JSON body for POST /lookup. StartTime is optional
// and defaults to now.
type lookupRequest struct {
	Target    string `json:"target"`
	StartTime string `json:"start_time"`
}

type lookupResponse struct {
	Target           string  `json:"target"`
	StartTime        string  `json:"start_time"`
	LightMinutes     float64 `json:"light_minutes"`
	RoundTripSeconds float64 `json:"round_trip_seconds"`
	Table            string  `json:"table"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Target == "" {
		http.Error(w, `{"error":"target is required"}`, http.StatusBadRequest)
		return
	}
	if req.StartTime == "" {
		req.StartTime = time.Now().UTC().Format(timeLayout)
	}

	table, err := s.lookup(r.Context(), req.StartTime, req.Target)
	if err != nil {
		var amb *horizons.AmbiguousMatchError
		var nf *horizons.NotFoundError
		switch {
		case errors.As(err, &amb):
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{
				"error":      "ambiguous target",
				"candidates": amb.Candidates,
			})
		case errors.As(err, &nf):
			http.Error(w, `{"error":"unknown target"}`, http.StatusNotFound)
		default:
			slog.Error("webhook lookup failed", "target", req.Target, "error", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		}
		return
	}

	minutes, err := lighttime.ParseMinutes(table)
	if err != nil {
		slog.Error("webhook lookup parse failed", "target", req.Target, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lookupResponse{
		Target:           req.Target,
		StartTime:        req.StartTime,
		LightMinutes:     minutes,
		RoundTripSeconds: lighttime.RoundTrip(minutes).Seconds(),
		Table:            table,
	})
}

func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := s.events.List(r.Context(), limit)
	if err != nil {
		slog.Error("list events failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*types.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
