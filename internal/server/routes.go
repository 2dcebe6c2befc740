package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hyChia88/Text2Cal/internal/engine"
	"github.com/hyChia88/Text2Cal/internal/store"
)

const requestTimeout = 60 * time.Second

type logJSON struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Importance float64  `json:"importance"`
	EmbedState string   `json:"embed_state"`
	Weight     float64  `json:"weight"`
	CreatedAt  string   `json:"created_at"`
}

func (s *Server) logJSON(entry *store.LogEntry) logJSON {
	return logJSON{
		ID:         entry.ID,
		Content:    entry.Content,
		Category:   entry.Category,
		Tags:       entry.Tags,
		Importance: entry.Importance,
		EmbedState: entry.EmbedState,
		Weight:     s.engine.Weight(entry.ID),
		CreatedAt:  time.UnixMilli(entry.CreatedAt).Format(time.RFC3339),
	}
}

func (s *Server) handleAddLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content    string   `json:"content"`
		Category   string   `json:"category"`
		Tags       []string `json:"tags"`
		Importance *float64 `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, `{"error":"content required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entry, err := s.engine.Add(ctx, engine.AddRequest{
		Content:    req.Content,
		Category:   req.Category,
		Tags:       req.Tags,
		Importance: req.Importance,
	})
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(s.logJSON(entry))
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 0)

	entries, err := s.engine.List(days)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]logJSON, len(entries))
	for i := range entries {
		out[i] = s.logJSON(&entries[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"days":  days,
		"count": len(out),
		"logs":  out,
	})
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	entry, err := s.engine.Get(chi.URLParam(r, "logID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.logJSON(entry))
}

func (s *Server) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content    *string  `json:"content"`
		Category   *string  `json:"category"`
		Tags       []string `json:"tags"`
		Importance *float64 `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	entry, err := s.engine.Update(ctx, chi.URLParam(r, "logID"), engine.UpdateRequest{
		Content:    req.Content,
		Category:   req.Category,
		Tags:       req.Tags,
		Importance: req.Importance,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.logJSON(entry))
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.engine.Delete(ctx, chi.URLParam(r, "logID")); err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

func (s *Server) handleSetWeight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weight *float64 `json:"weight"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Weight == nil {
		http.Error(w, `{"error":"weight required"}`, http.StatusBadRequest)
		return
	}

	applied, err := s.engine.SetWeight(chi.URLParam(r, "logID"), *req.Weight)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"weight": applied,
	})
}

func (s *Server) handleClearWeight(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearWeight(chi.URLParam(r, "logID")); err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

func (s *Server) handleResetWeights(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResetWeights(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "reset"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Days  int    `json:"days"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, `{"error":"query required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	results, err := s.engine.Search(ctx, req.Query, req.Days, req.TopK)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   req.Query,
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		http.Error(w, `{"error":"query parameter required"}`, http.StatusBadRequest)
		return
	}
	days := queryInt(r, "days", 0)
	topK := queryInt(r, "top_k", 0)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	suggestion, err := s.engine.Suggest(ctx, query, days, topK)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(suggestion)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	history, err := s.engine.History(limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type suggestionJSON struct {
		ID        int64    `json:"id"`
		Query     string   `json:"query"`
		LogIDs    []string `json:"log_ids"`
		Output    string   `json:"output"`
		CreatedAt string   `json:"created_at"`
	}
	out := make([]suggestionJSON, len(history))
	for i, h := range history {
		out[i] = suggestionJSON{
			ID:        h.ID,
			Query:     h.Query,
			LogIDs:    h.LogIDs,
			Output:    h.Output,
			CreatedAt: time.UnixMilli(h.CreatedAt).Format(time.RFC3339),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":       len(out),
		"suggestions": out,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 0)

	insights, err := s.engine.Insights(days)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(insights)
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, engine.ErrUnknownID) {
		status = http.StatusNotFound
	}
	http.Error(w, `{"error":"`+err.Error()+`"}`, status)
}
