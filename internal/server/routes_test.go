package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyChia88/Text2Cal/internal/engine"
	"github.com/hyChia88/Text2Cal/internal/llm"
	"github.com/hyChia88/Text2Cal/internal/store"
)

func newTestServer(t *testing.T) (*Server, *llm.MockClient) {
	t.Helper()

	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock := &llm.MockClient{Response: &llm.Response{Content: "a suggestion", Provider: "mock"}}
	eng, err := engine.New(db, engine.NewHashEmbedder(32), mock, engine.DefaultOptions())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(eng.Close)

	return New(db, eng, "test"), mock
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func addLog(t *testing.T, s *Server, content string) string {
	t.Helper()

	w := doJSON(t, s, http.MethodPost, "/api/logs", map[string]any{"content": content})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /api/logs = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.ID
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v", resp["status"])
	}
	if resp["db"] != true {
		t.Errorf("db = %v, want true", resp["db"])
	}
}

func TestAddAndGetLog(t *testing.T) {
	s, _ := newTestServer(t)

	id := addLog(t, s, "Meeting with the team about #planning")

	w := doJSON(t, s, http.MethodGet, "/api/logs/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET log = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
		Weight   float64  `json:"weight"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Category != "meeting" {
		t.Errorf("category = %q, want meeting", resp.Category)
	}
	if len(resp.Tags) != 1 || resp.Tags[0] != "planning" {
		t.Errorf("tags = %v, want [planning]", resp.Tags)
	}
	if resp.Weight != 1.0 {
		t.Errorf("weight = %v, want 1.0", resp.Weight)
	}
}

func TestAddLogRejectsEmptyContent(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/logs", map[string]any{"content": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListLogs(t *testing.T) {
	s, _ := newTestServer(t)

	addLog(t, s, "first entry")
	addLog(t, s, "second entry")

	w := doJSON(t, s, http.MethodGet, "/api/logs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count int `json:"count"`
		Logs  []struct {
			Content string `json:"content"`
		} `json:"logs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestDeleteLog(t *testing.T) {
	s, _ := newTestServer(t)

	id := addLog(t, s, "short lived")

	w := doJSON(t, s, http.MethodDelete, "/api/logs/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/logs/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET after delete = %d, want 404", w.Code)
	}
}

func TestDeleteUnknownLog(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodDelete, "/api/logs/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestSetAndClearWeight(t *testing.T) {
	s, _ := newTestServer(t)

	id := addLog(t, s, "weighted entry")

	w := doJSON(t, s, http.MethodPut, "/api/logs/"+id+"/weight", map[string]any{"weight": 3.0})
	if w.Code != http.StatusOK {
		t.Fatalf("PUT weight = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Weight float64 `json:"weight"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Weight != 1.0 {
		t.Errorf("applied weight = %v, want clamped 1.0", resp.Weight)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/logs/"+id+"/weight", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE weight = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPut, "/api/logs/"+id+"/weight", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing weight = %d, want 400", w.Code)
	}
}

func TestSearch(t *testing.T) {
	s, _ := newTestServer(t)

	addLog(t, s, "grocery shopping list")
	addLog(t, s, "sprint planning notes")

	w := doJSON(t, s, http.MethodPost, "/api/search", map[string]any{"query": "planning"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Count   int `json:"count"`
		Results []struct {
			ID       string  `json:"id"`
			Combined float64 `json:"combined"`
			Rank     int     `json:"rank"`
		} `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Results[0].Rank != 1 {
		t.Errorf("first rank = %d, want 1", resp.Results[0].Rank)
	}
	if resp.Results[0].Combined < resp.Results[1].Combined {
		t.Error("results not sorted by combined score")
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/search", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSuggestion(t *testing.T) {
	s, mock := newTestServer(t)

	addLog(t, s, "remember to water the plants")

	w := doJSON(t, s, http.MethodGet, "/api/suggestion?query=plants", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Text     string `json:"text"`
		Degraded bool   `json:"degraded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Degraded {
		t.Error("degraded set with working generation")
	}
	if resp.Text != "a suggestion" {
		t.Errorf("text = %q", resp.Text)
	}
	if len(mock.Calls) != 1 {
		t.Errorf("generation called %d times, want 1", len(mock.Calls))
	}
}

func TestSuggestionDegradedWithoutEntries(t *testing.T) {
	s, mock := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/suggestion?query=anything", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Degraded bool `json:"degraded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Degraded {
		t.Error("degraded not set")
	}
	if len(mock.Calls) != 0 {
		t.Errorf("generation called on empty memory set")
	}
}

func TestInsights(t *testing.T) {
	s, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		addLog(t, s, fmt.Sprintf("note number %d", i))
	}

	w := doJSON(t, s, http.MethodGet, "/api/insights?days=7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Days         int            `json:"days"`
		TotalEntries int            `json:"total_entries"`
		Categories   map[string]int `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Days != 7 {
		t.Errorf("days = %d, want 7", resp.Days)
	}
	if resp.TotalEntries != 3 {
		t.Errorf("total_entries = %d, want 3", resp.TotalEntries)
	}
}
