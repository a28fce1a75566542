package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/models"
)

type searchRequest struct {
	Query string `json:"query"`
	Index string `json:"index"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" || req.Index == "" {
		s.respondError(w, http.StatusBadRequest, "query and index are required")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query), zap.String("index", req.Index), zap.Int("top_k", req.TopK))
	results := s.provider.Search(r.Context(), req.Query, req.Index, req.TopK)
	s.respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleListIndexes(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "true"
	names := s.provider.ListIndexes(r.Context(), force)
	s.respondJSON(w, http.StatusOK, map[string]any{"indexes": names})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, message := s.provider.Status(r.Context())
	resp := map[string]any{
		"state":   state,
		"message": message,
	}
	if lastErr := s.provider.LastError(); lastErr != "" {
		resp["last_error"] = lastErr
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.provider.Metrics())
}

type migrateRequest struct {
	Index      string `json:"index"`
	Collection string `json:"collection"`
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Index == "" || req.Collection == "" {
		s.respondError(w, http.StatusBadRequest, "index and collection are required")
		return
	}
	s.logger.Info("migrate request",
		zap.String("index", req.Index), zap.String("collection", req.Collection))
	report := s.provider.Migrate(r.Context(), req.Index, req.Collection)
	status := http.StatusOK
	if !report.Success {
		status = http.StatusUnprocessableEntity
	}
	s.respondJSON(w, status, report)
}

type ingestRequest struct {
	Collection string                  `json:"collection"`
	Documents  []models.DocumentRecord `json:"documents"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Collection == "" {
		s.respondError(w, http.StatusBadRequest, "collection is required")
		return
	}
	ok := s.provider.Ingest(r.Context(), req.Documents, req.Collection)
	if !ok {
		s.respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"error":   s.provider.LastError(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accepted": len(req.Documents),
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.provider.ClearCache()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
