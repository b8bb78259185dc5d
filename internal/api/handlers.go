package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the database ping for the health endpoint.
const healthCheckTimeout = 3 * time.Second

type healthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	Database         string `json:"database"`
	OpenTransactions int    `json:"openTransactions"`
}

type transactionResponse struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	AgeMS      int64  `json:"ageMs"`
	SQLPreview string `json:"sqlPreview"`
	StartedAt  string `json:"startedAt"`
}

// handleHealth reports process liveness, database reachability, and the open
// transaction count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:           "ok",
		Version:          s.version,
		Database:         "ok",
		OpenTransactions: s.registry.Count(),
	}

	status := http.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.health.HealthCheck(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	s.writeJSON(w, status, resp)
}

// handleTransactions returns a snapshot of the held-transaction registry.
func (s *Server) handleTransactions(w http.ResponseWriter, _ *http.Request) {
	entries := s.registry.Snapshot()
	out := make([]transactionResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, transactionResponse{
			ID:         entry.ID(),
			State:      string(entry.State()),
			AgeMS:      entry.Age().Milliseconds(),
			SQLPreview: entry.SQLPreview(),
			StartedAt:  entry.StartedAt().UTC().Format(time.RFC3339),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"count":        len(out),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
