package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/invload/internal/core"
)

type stubCycles struct {
	cycle core.CycleResult
	ok    bool
}

func (s stubCycles) LastCycle() (core.CycleResult, bool) { return s.cycle, s.ok }

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantCode   string
	}{
		{name: "database up", wantStatus: http.StatusOK},
		{name: "database down", pingErr: errors.New("dial tcp: connection refused"), wantStatus: http.StatusServiceUnavailable, wantCode: "DB005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(":0", stubCycles{}, stubPinger{err: tt.pingErr}, nil)
			rec := serve(t, s, "/healthz")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode == "" {
				return
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	t.Run("no cycle yet", func(t *testing.T) {
		s := NewServer(":0", stubCycles{}, stubPinger{}, nil)
		rec := serve(t, s, "/status")

		var body StatusResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Ready || body.Cycle != nil {
			t.Errorf("body = %+v, want not ready", body)
		}
	})

	t.Run("last cycle", func(t *testing.T) {
		cycle := core.CycleResult{
			RunID:      "run-1",
			StartedAt:  time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC),
			FinishedAt: time.Date(2024, 1, 15, 3, 1, 0, 0, time.UTC),
			Files: []core.FileResult{
				{Table: "p_categories", Good: 3, Bad: 1},
				{Table: "p_products", Good: 5},
			},
		}
		s := NewServer(":0", stubCycles{cycle: cycle, ok: true}, stubPinger{}, nil)
		rec := serve(t, s, "/status")

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body StatusResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !body.Ready || body.Good != 8 || body.Bad != 1 {
			t.Errorf("body = ready %v good %d bad %d, want true 8 1", body.Ready, body.Good, body.Bad)
		}
		if body.Cycle == nil || body.Cycle.RunID != "run-1" {
			t.Errorf("cycle = %+v, want run-1", body.Cycle)
		}
	})
}

func TestHandleAudit(t *testing.T) {
	var gotLimit int
	reader := func(_ context.Context, limit int) ([]core.AuditEntry, error) {
		gotLimit = limit
		return []core.AuditEntry{{ID: 2, Action: "END_FILE"}, {ID: 1, Action: "START_FILE"}}, nil
	}
	s := NewServer(":0", stubCycles{}, stubPinger{}, reader)

	tests := []struct {
		target    string
		wantLimit int
	}{
		{"/audit", defaultAuditLimit},
		{"/audit?limit=5", 5},
		{"/audit?limit=abc", defaultAuditLimit},
		{"/audit?limit=0", defaultAuditLimit},
		{"/audit?limit=100000", maxAuditLimit},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(t, s, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", gotLimit, tt.wantLimit)
			}
			var entries []core.AuditEntry
			if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(entries) != 2 || entries[0].ID != 2 {
				t.Errorf("entries = %+v", entries)
			}
		})
	}
}

func TestHandleAudit_Error(t *testing.T) {
	reader := func(context.Context, int) ([]core.AuditEntry, error) {
		return nil, errors.New(`relation "audit_log" does not exist`)
	}
	s := NewServer(":0", stubCycles{}, stubPinger{}, reader)

	if rec := serve(t, s, "/audit"); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestAuditRouteDisabled(t *testing.T) {
	s := NewServer(":0", stubCycles{}, stubPinger{}, nil)
	if rec := serve(t, s, "/audit"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
