package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/invload/internal/core"
)

const (
	pingTimeout       = 3 * time.Second
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Ready bool              `json:"ready"`
	Cycle *core.CycleResult `json:"cycle,omitempty"`
	Good  int               `json:"good"`
	Bad   int               `json:"bad"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cycle, ok := s.cycles.LastCycle()
	if !ok {
		writeJSON(w, http.StatusOK, StatusResponse{})
		return
	}

	good, bad := cycle.Totals()
	writeJSON(w, http.StatusOK, StatusResponse{
		Ready: true,
		Cycle: &cycle,
		Good:  good,
		Bad:   bad,
	})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultAuditLimit)
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	entries, err := s.audit(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// parseIntParam parses a positive integer query parameter, falling back to
// defaultVal when it is absent or invalid.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
