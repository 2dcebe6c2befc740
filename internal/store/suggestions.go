package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Suggestion records one generation call: the query, the entry ids that
// went into the context, and the output.
type Suggestion struct {
	ID        int64
	Query     string
	LogIDs    []string
	Output    string
	CreatedAt int64
}

// SaveSuggestion appends a generation record.
func (db *DB) SaveSuggestion(s *Suggestion) error {
	now := time.Now().UnixMilli()
	ids, err := json.Marshal(s.LogIDs)
	if err != nil {
		return fmt.Errorf("marshal log ids: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO suggestions (query, log_ids, output, created_at)
		VALUES (?, ?, ?, ?)
	`, s.Query, string(ids), s.Output, now)
	if err != nil {
		return fmt.Errorf("save suggestion: %w", err)
	}

	id, _ := result.LastInsertId()
	s.ID = id
	s.CreatedAt = now
	return nil
}

// ListSuggestions returns the most recent generation records, newest first.
func (db *DB) ListSuggestions(limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, query, log_ids, output, created_at
		FROM suggestions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

func scanSuggestions(rows *sql.Rows) ([]Suggestion, error) {
	var suggestions []Suggestion
	for rows.Next() {
		var s Suggestion
		var ids string
		if err := rows.Scan(&s.ID, &s.Query, &ids, &s.Output, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &s.LogIDs); err != nil {
			return nil, fmt.Errorf("unmarshal log ids: %w", err)
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}
